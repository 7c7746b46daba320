package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cotsmith/internal/autopoiesis"
	"cotsmith/internal/config"
	"cotsmith/internal/effector"
	"cotsmith/internal/llm"
	"cotsmith/internal/logging"
	"cotsmith/internal/mcp"
	"cotsmith/internal/orchestrate"
	"cotsmith/internal/pddl/modifier"
	"cotsmith/internal/pddl/planner"
	"cotsmith/internal/pddl/synth"
	"cotsmith/internal/recorder"
	"cotsmith/internal/regression"
	"cotsmith/internal/role/analysis"
	"cotsmith/internal/role/brain"
	"cotsmith/internal/role/curriculum"
	"cotsmith/internal/role/nerves"
	"cotsmith/internal/router"
	"cotsmith/internal/sandbox"
	"cotsmith/internal/skill"
	"cotsmith/internal/skill/core"
)

// errInterrupted is returned by a subcommand's RunE when a collected
// context is canceled by SIGINT/SIGTERM, so main can map it to exit
// code 130 instead of the generic failure code.
var errInterrupted = errors.New("cotsmith: interrupted")

// fileManagementDomain is the one domain name every wired collaborator
// routes through, matching _get_available_actions' hardcoded table.
const fileManagementDomain = "file_management"

// system bundles every collaborator a subcommand might need. Not every
// field is populated by every buildSystem call site; fields a given
// command never touches stay zero-valued.
type system struct {
	cfg       *config.Config
	workspace string

	sandboxMgr *sandbox.Manager
	paths      sandbox.Paths

	registry  *skill.Registry
	transport *mcp.InProcessTransport
	gateway   *effector.Gateway
	filter    *router.Filter

	llmClient      llm.Client
	brainRole      *brain.Role
	nervesRole     *nerves.Role
	analysisRole   *analysis.Role
	curriculumRole *curriculum.Role

	synthesizer *synth.Synthesizer
	pddlPlanner *planner.Planner
	pddlMod     *modifier.Modifier
	storage     orchestrate.FileStorage

	regRegistry *regression.Registry

	log *logging.Logger
}

// buildSystem loads config, creates a fresh sandbox, registers the
// core skill pool against it, and wires every collaborator package the
// CLI depends on. A new sandbox is created per invocation, matching the
// original's per-attempt sandbox_manager.create() lifecycle.
func buildSystem(ctx context.Context) (*system, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	ws := workspace
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	ws = abs

	canonicalDomain := filepath.Join(ws, cfg.Paths.CanonicalDomain)
	canonicalStorage := filepath.Join(ws, cfg.Paths.CanonicalStorage)
	if err := os.MkdirAll(canonicalStorage, 0o755); err != nil {
		return nil, fmt.Errorf("prepare canonical storage: %w", err)
	}
	if _, err := os.Stat(canonicalDomain); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(canonicalDomain), 0o755); err != nil {
			return nil, fmt.Errorf("prepare canonical domain dir: %w", err)
		}
		if err := os.WriteFile(canonicalDomain, []byte(""), 0o644); err != nil {
			return nil, fmt.Errorf("seed canonical domain: %w", err)
		}
	}

	sandboxMgr := sandbox.NewManager(canonicalDomain, canonicalStorage)
	sandboxRoot := filepath.Join(ws, cfg.Paths.SandboxRoot)
	if _, err := sandboxMgr.Create(sandboxRoot); err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	paths, err := sandboxMgr.Paths()
	if err != nil {
		return nil, err
	}

	registry := skill.NewRegistry()
	core.Register(registry, paths.StorageDir)

	transport := mcp.NewInProcessTransport(registry)
	gateway := effector.New(transport, cfg.Effector.ToolCallTimeout)
	registerCoreMappers(gateway)

	filter := router.New(router.RouteConfig{
		Whitelist:           cfg.Router.Whitelist,
		Synonyms:            router.DefaultConfig().Synonyms,
		LogicKeywords:       cfg.Router.LogicKeywords,
		FuzzyPronouns:       cfg.Router.FuzzyPronouns,
		ComplexityThreshold: cfg.Router.ComplexityThreshold,
		Connectors:          router.DefaultConfig().Connectors,
	})

	logMgr.Get(logging.CategoryBoot).Info("sandbox created at %s", sandboxMgr.Root())

	client, err := buildLLMClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pl, err := planner.New(planner.Config{
		DownwardPath: cfg.Planner.Binary,
		Runtime:      cfg.Planner.Runtime,
		SearchConfig: cfg.Planner.SearchConfig,
		Timeout:      cfg.Planner.PlanTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("construct planner: %w", err)
	}

	storage := orchestrate.FileStorage{
		DomainPaths: map[string]string{fileManagementDomain: paths.DomainFile},
		ProblemPath: filepath.Join(paths.StorageDir, "problem.pddl"),
	}
	synthesizer := synth.New(client, storage, []string{fileManagementDomain}, map[string]synth.TypeMapping{
		fileManagementDomain: synth.DefaultFileManagementTypes,
	})

	return &system{
		cfg:       cfg,
		workspace: ws,

		sandboxMgr: sandboxMgr,
		paths:      paths,

		registry:  registry,
		transport: transport,
		gateway:   gateway,
		filter:    filter,

		llmClient:      client,
		brainRole:      brain.New(client),
		nervesRole:     nerves.New(client),
		analysisRole:   analysis.New(client),
		curriculumRole: curriculum.New(client),

		synthesizer: synthesizer,
		pddlPlanner: pl,
		pddlMod:     modifier.New(),
		storage:     storage,

		regRegistry: regression.NewRegistry(filepath.Join(ws, cfg.Regression.RegistryPath)),

		log: logMgr.Get(logging.CategoryMission),
	}, nil
}

// buildLLMClient returns a scripted FakeClient under --dry-run, or a
// real GenAIClient otherwise, matching SPEC_FULL.md's provider switch.
func buildLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if dryRun {
		return &llm.FakeClient{}, nil
	}
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	return llm.NewGenAIClient(ctx, apiKey, cfg.LLM.Model)
}

// registerCoreMappers installs the positional-argument-to-named-field
// mapping for each of the fourteen core skills, matching the Schema.Required
// orderings declared in internal/skill/core/core.go.
func registerCoreMappers(gw *effector.Gateway) {
	named := func(keys ...string) effector.ParamMapper {
		return func(args []string) map[string]any {
			m := make(map[string]any, len(keys))
			for i, k := range keys {
				if i < len(args) {
					m[k] = args[i]
				}
			}
			return m
		}
	}

	gw.RegisterMapper("move", named("file_name", "from_folder", "to_folder"))
	gw.RegisterMapper("copy", named("source_file", "source_folder", "target_file", "target_folder"))
	gw.RegisterMapper("scan", named("folder"))
	gw.RegisterMapper("compress", named("file_name", "folder", "archive_name"))
	gw.RegisterMapper("uncompress", named("archive", "folder", "file"))
	gw.RegisterMapper("create_file", named("filename", "folder", "content"))
	gw.RegisterMapper("create_folder", named("folder", "parent"))
	gw.RegisterMapper("get_admin", named())
	gw.RegisterMapper("rename", named("file_name", "folder", "new_name"))
	gw.RegisterMapper("remove", named("file_name", "folder"))
	gw.RegisterMapper("delete", named("file_name", "folder"))
	gw.RegisterMapper("read", named("file_name", "folder"))
	gw.RegisterMapper("write", named("file_name", "folder", "content"))
	gw.RegisterMapper("connect_folders", named("folder_a", "folder_b"))
}

// buildRecorder constructs a single-mission Recorder rooted under the
// configured output directory.
func (s *system) buildRecorder() (*recorder.Recorder, error) {
	return recorder.New(filepath.Join(s.workspace, s.cfg.Paths.OutputDir))
}

// autopoieticBuild is the evolve.Loop's Go-source-to-skill builder,
// bound to the yaegi-backed interpreter.
var autopoieticInterpreter = autopoiesis.NewInterpreter()

func autopoieticBuild(goCode, actionName string) (skill.ExecuteFunc, error) {
	return autopoieticInterpreter.Build(goCode, actionName)
}
