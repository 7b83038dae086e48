// Package engine drives the per-recipe build pipeline (spec.md §4.8):
// fetch, extract, patch, configure/make/install, and relocate, each guarded
// by an on-disk sentinel so a second invocation without rebuild resumes
// idempotently.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/log"
	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/planner"
	"github.com/mussels-build/mussels/internal/toolchain"
	"github.com/mussels-build/mussels/internal/workspace"
)

// State is one position in the per-recipe state machine.
type State string

const (
	StateLoaded     State = "loaded"
	StateFetched    State = "fetched"
	StateExtracted  State = "extracted"
	StatePatched    State = "patched"
	StateConfigured State = "configured"
	StateBuilt      State = "built"
	StateInstalled  State = "installed"
	StateStaged     State = "staged"
	StateFailed     State = "failed"
)

// Result is the per-recipe outcome fed to the summary printer (spec.md §7
// "Propagation").
type Result struct {
	Name, Version string
	State         State
	Success       bool
	Skipped       bool
	Elapsed       time.Duration
	Err           error
}

// Engine owns the workspace, resolved toolchain, and run parameters shared
// across every recipe in a plan.
type Engine struct {
	Workspace *workspace.Workspace
	Toolchain toolchain.Toolchain
	Target    string
	Rebuild   bool
	Logger    log.Logger
}

// New builds an Engine for one build invocation.
func New(ws *workspace.Workspace, tc toolchain.Toolchain, target string, rebuild bool, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Workspace: ws, Toolchain: tc, Target: target, Rebuild: rebuild, Logger: logger}
}

// BuildPlan runs every recipe in plan, batch by batch, in the serial order
// spec.md §5 mandates. Once a recipe transitions to Failed, every later
// recipe (in the current and remaining batches) is skipped rather than
// attempted, and the overall build is reported non-successful.
func (e *Engine) BuildPlan(ctx context.Context, plan *planner.Plan) ([]Result, error) {
	var results []Result
	failed := false

	for _, batch := range plan.Batches {
		for _, name := range batch {
			node := plan.Nodes[name]
			if failed {
				results = append(results, Result{Name: node.Name, Version: node.Version, Skipped: true})
				e.Logger.Warn("skipping recipe after earlier failure", "recipe", node.Name)
				continue
			}

			start := time.Now()
			state, err := e.buildNode(ctx, node)
			elapsed := time.Since(start)

			result := Result{
				Name: node.Name, Version: node.Version,
				State: state, Success: err == nil, Elapsed: elapsed, Err: err,
			}
			results = append(results, result)

			if err != nil {
				failed = true
				e.Logger.Error("recipe failed", "recipe", node.Name, "version", node.Version, "state", state, "error", err)
			}
		}
	}

	if failed {
		return results, fmt.Errorf("build did not complete successfully")
	}
	return results, nil
}

// buildNode drives one recipe through its full transition sequence,
// returning the last state reached and any transition error.
func (e *Engine) buildNode(ctx context.Context, node *planner.Node) (State, error) {
	if node.Recipe.Kind == catalog.KindCollection {
		// Collections skip fetch/extract/patch/script/relocate entirely
		// (spec.md §4.8 "Collections").
		return StateStaged, nil
	}

	rc := &recipeContext{engine: e, node: node}

	archivePath, err := rc.fetch(ctx)
	if err != nil {
		return StateLoaded, &muserrors.FetchFailed{URL: node.Recipe.SourceURL, Err: err}
	}

	buildDir, preexisted, err := rc.extract(archivePath)
	if err != nil {
		return StateFetched, err
	}

	if err := rc.patch(buildDir); err != nil {
		return StateExtracted, err
	}

	if err := rc.runScripts(ctx, buildDir, preexisted); err != nil {
		return StatePatched, err
	}

	if err := rc.relocate(buildDir); err != nil {
		return StateBuilt, err
	}

	return StateStaged, nil
}
