// Package autopoiesis interprets LLM-generated Go skill source at
// runtime via yaegi rather than invoking the Go toolchain, so a newly
// learned skill becomes callable without a compile step or a process
// restart.
//
// Grounded directly on
// _examples/theRebelliousNerd-codenerd/internal/autopoiesis/yaegi_executor.go
// (interp.New/stdlib.Symbols setup, the RunTool entry-point-by-reflection
// pattern, context-timeout-guarded execution goroutine); the generated
// skill's entry point is named Run instead of RunTool and takes the
// skill.ExecuteFunc signature directly, matching
// internal/evolve/evolve.go's validateGoSkillSource contract.
package autopoiesis

import (
	"context"
	"fmt"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"cotsmith/internal/skill"
)

// Interpreter builds skill.ExecuteFunc values from validated Go source
// by interpreting it with a fresh yaegi instance per build, so one
// generated skill's package-level state can never leak into another's.
type Interpreter struct{}

// NewInterpreter constructs an Interpreter.
func NewInterpreter() *Interpreter { return &Interpreter{} }

// Build interprets goCode, which must declare a package-level function
//
//	func Run(ctx context.Context, args map[string]any) (string, error)
//
// and returns an ExecuteFunc backed by it. actionName only labels
// errors; it does not select which function is extracted.
func (in *Interpreter) Build(goCode, actionName string) (skill.ExecuteFunc, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("autopoiesis: load stdlib symbols: %w", err)
	}

	if _, err := i.Eval(goCode); err != nil {
		return nil, fmt.Errorf("autopoiesis: interpret skill %q: %w", actionName, err)
	}

	v, err := i.Eval("main.Run")
	if err != nil {
		return nil, fmt.Errorf("autopoiesis: skill %q has no Run function: %w", actionName, err)
	}
	run, ok := v.Interface().(func(context.Context, map[string]any) (string, error))
	if !ok {
		return nil, fmt.Errorf("autopoiesis: skill %q's Run has the wrong signature", actionName)
	}

	return func(ctx context.Context, args map[string]any) (string, error) {
		type outcome struct {
			text string
			err  error
		}
		done := make(chan outcome, 1)
		go func() {
			text, err := run(ctx, args)
			done <- outcome{text: text, err: err}
		}()
		select {
		case o := <-done:
			return o.text, o.err
		case <-ctx.Done():
			return "", fmt.Errorf("autopoiesis: skill %q timed out: %w", actionName, ctx.Err())
		}
	}, nil
}
