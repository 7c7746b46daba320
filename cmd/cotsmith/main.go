// Package main implements the cotsmith CLI: the command-line surface
// over the Mission pipeline, Evolution Loop, and Regression Guard
// described throughout SPEC_FULL.md. This file is the entry point and
// command registration hub; subcommand implementations are split
// across cmd_*.go files, following
// _examples/theRebelliousNerd-codenerd/cmd/nerd/main.go's layout.
//
// # File Index
//
//   - main.go        - entry point, rootCmd, global flags, init()
//   - wiring.go      - system construction shared by every subcommand
//   - cmd_run.go     - runCmd (single mission), batchCmd (many missions)
//   - cmd_evolve.go  - evolveCmd (Evolution Loop over one failing goal)
//   - cmd_regress.go - regressCmd (Regression Guard replay)
//   - cmd_export.go  - exportCmd (training-data export from a recordings dir)
//   - cmd_propose.go - proposeCmd (Curriculum Proposer diagnostic companion)
//   - helpers.go     - small shared helpers used by the subcommands above
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cotsmith/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	dryRun     bool
	timeout    time.Duration

	// Logger
	cliLog  *zap.Logger
	logMgr  *logging.Manager
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "cotsmith",
	Short: "cotsmith - Chain-of-Thought mission generator over a symbolic filesystem world",
	Long: `cotsmith routes a natural-language filesystem task through the Hypothalamus
Filter to either the Nerves role directly or the Brain role first, carries out
every resulting action through the Effector Gateway against a sandboxed
storage tree, and records the full Chain-of-Thought trail for later training.

A separate Evolution Loop lets the system author new PDDL actions and Go
skills on demand when an existing action set cannot satisfy a goal, and the
Regression Guard replays previously-learned cases before any such patch is
promoted.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		cliLog, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		level := "info"
		if verbose {
			level = "debug"
		}
		logMgr = logging.NewManager(filepath.Join(ws, "logs"), level, false)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cliLog != nil {
			_ = cliLog.Sync()
		}
	},
}

// signalContext returns a context canceled on SIGINT/SIGTERM, mirroring
// cmd/nerd/cmd_mangle_lsp.go's context.WithCancel-plus-signal.Notify
// idiom via the stdlib's NotifyContext convenience wrapper, and bounded
// by --timeout when it is positive.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() { cancel(); stop() }
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config overlay (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Use scripted fake LLM clients instead of calling a real provider")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall operation timeout")

	rootCmd.AddCommand(
		runCmd,
		batchCmd,
		evolveCmd,
		regressCmd,
		exportCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if err == errInterrupted {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
