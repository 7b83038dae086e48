package engine

import (
	"github.com/mussels-build/mussels/internal/planner"
)

// recipeContext bundles the engine and the node being built, so each
// transition method can reach the workspace, toolchain, and target without
// re-threading them through every call.
type recipeContext struct {
	engine *Engine
	node   *planner.Node
}
