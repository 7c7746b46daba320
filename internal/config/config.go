// Package config implements the structured configuration record named
// throughout SPEC_FULL.md's design notes: all timeouts, retry budgets,
// and path roots flow from one record loaded once, per
// _examples/theRebelliousNerd-codenerd/internal/config/config.go's
// nested yaml-tagged Config struct and DefaultConfig() constructor.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the single structured record the whole system is built
// from. No component re-reads environment variables at call time; the
// Skill Registry's sandbox hot reload is driven by an fsnotify watch
// (skill.Loader.WatchSandbox), not by SANDBOX_MCP_SKILLS_DIR.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Planner    PlannerConfig    `yaml:"planner"`
	Effector   EffectorConfig   `yaml:"effector"`
	Kernel     KernelConfig     `yaml:"kernel"`
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Router     RouterConfig     `yaml:"router"`
	Regression RegressionConfig `yaml:"regression"`
	Curriculum CurriculumConfig `yaml:"curriculum"`
	Paths      PathConfig       `yaml:"paths"`
	LLM        LLMConfig        `yaml:"llm"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type PlannerConfig struct {
	Binary         string        `yaml:"binary"`
	Runtime        string        `yaml:"runtime"`
	SearchConfig   string        `yaml:"search_config"`
	PlanTimeout    time.Duration `yaml:"plan_timeout"`
}

type EffectorConfig struct {
	ToolEndpoint   string        `yaml:"tool_endpoint"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	ToolListTimeout time.Duration `yaml:"tool_list_timeout"`
	ToolCallTimeout time.Duration `yaml:"tool_call_timeout"`
	DisconnectTimeout time.Duration `yaml:"disconnect_timeout"`
}

type KernelConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

type EvolutionConfig struct {
	MaxRetries             int `yaml:"max_retries"`
	ValidationIterationBudget int `yaml:"validation_iteration_budget"`
}

type RouterConfig struct {
	Whitelist            []string `yaml:"whitelist"`
	LogicKeywords         []string `yaml:"logic_keywords"`
	FuzzyPronouns         []string `yaml:"fuzzy_pronouns"`
	ComplexityThreshold   int      `yaml:"complexity_threshold"`
}

type RegressionConfig struct {
	RegistryPath string `yaml:"registry_path"`
}

type CurriculumConfig struct {
	MaxRetries         int     `yaml:"max_retries"`
	NoveltyThreshold   float64 `yaml:"novelty_threshold"`
}

type PathConfig struct {
	CanonicalDomain  string `yaml:"canonical_domain"`
	CanonicalStorage string `yaml:"canonical_storage"`
	CoreSkillsDir    string `yaml:"core_skills_dir"`
	SandboxRoot      string `yaml:"sandbox_root"`
	OutputDir        string `yaml:"output_dir"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type LoggingConfig struct {
	Dir      string `yaml:"dir"`
	Level    string `yaml:"level"`
	JSON     bool   `yaml:"json"`
}

// DefaultConfig returns a fully populated Config with the defaults
// named throughout SPEC_FULL.md (planner 30s, tool-call 5s except
// disconnect 2s, kernel 5 iterations, evolution 4 retries, router
// threshold 25, decomposition/curriculum 3 retries).
func DefaultConfig() *Config {
	return &Config{
		Name:    "cotsmith",
		Version: "0.1.0",
		Planner: PlannerConfig{
			Runtime:      "python3",
			SearchConfig: "--heuristic hff=ff() --search lazy_greedy([hff],preferred=[hff])",
			PlanTimeout:  30 * time.Second,
		},
		Effector: EffectorConfig{
			ConnectTimeout:    5 * time.Second,
			SessionTimeout:    5 * time.Second,
			ToolListTimeout:   5 * time.Second,
			ToolCallTimeout:   5 * time.Second,
			DisconnectTimeout: 2 * time.Second,
		},
		Kernel: KernelConfig{MaxIterations: 5},
		Evolution: EvolutionConfig{
			MaxRetries:                4,
			ValidationIterationBudget: 5,
		},
		Router: RouterConfig{
			Whitelist: []string{
				"move", "delete", "copy", "read", "rename", "write",
				"scan", "compress", "uncompress", "create_file",
				"create_folder", "get_admin", "connect_folders", "remove",
			},
			LogicKeywords:       []string{"if", "and", "or", "when", "unless", "then", "else"},
			FuzzyPronouns:       []string{"that", "some", "related", "*", "certain", "any", "each", "it", "them", "this", "these"},
			ComplexityThreshold: 25,
		},
		Regression: RegressionConfig{RegistryPath: "regression_registry.json"},
		Curriculum: CurriculumConfig{MaxRetries: 3, NoveltyThreshold: 0.92},
		Paths: PathConfig{
			CanonicalDomain:  "domain.pddl",
			CanonicalStorage: "storage",
			CoreSkillsDir:    "skills/core",
			SandboxRoot:      "sandboxes",
			OutputDir:        "output",
		},
		LLM: LLMConfig{Provider: "genai", Model: "gemini-2.0-flash", APIKeyEnv: "GENAI_API_KEY"},
		Logging: LoggingConfig{Dir: "logs", Level: "info"},
	}
}

// Load reads a YAML config file, overlaying it onto DefaultConfig so
// partial files are legal.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
