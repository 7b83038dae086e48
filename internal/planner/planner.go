// Package planner computes the transitive dependency set for a build
// request and partitions it into ordered build batches (spec.md §4.6).
package planner

import (
	"errors"
	"fmt"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/platform"
	"github.com/mussels-build/mussels/internal/selector"
	"github.com/mussels-build/mussels/internal/version"
)

// Node is one resolved recipe in the plan, with its dependency and
// required-tool NVCs already resolved.
type Node struct {
	Name, Version, Cookbook string
	Recipe                  *catalog.Recipe
	Variant                 catalog.Variant
	DependencyNVCs          []string // bare dependency names, keys into Plan.Nodes
	RequiredTools           []string // raw tool references, resolved later by C7
}

// Plan is the planner's output: every resolved node keyed by bare name, and
// the batch order (spec.md §4.6 "Output").
type Plan struct {
	Nodes   map[string]*Node // keyed by bare name (Open Question (a): one version per name)
	Batches [][]string       // each inner slice holds bare names
}

// Request is the user-facing build request: a root item reference, the
// target architecture, and the trust checker used during selection.
type Request struct {
	Root   version.Reference
	Target string
	HostOS string
	Trust  selector.TrustChecker
}

// Plan expands req into a complete, conflict-free, cycle-free Plan.
func Plan(idx *catalog.Index, req Request) (*Plan, error) {
	p := &Plan{Nodes: make(map[string]*Node)}
	stack := make(map[string]bool)
	var stackOrder []string

	var expand func(ref version.Reference, preferredCookbook string, idx *catalog.Index) (*catalog.Index, error)
	expand = func(ref version.Reference, preferredCookbook string, idx *catalog.Index) (*catalog.Index, error) {
		if stack[ref.Name] {
			return nil, &muserrors.CycleDetected{Cycle: append(append([]string(nil), stackOrder...), ref.Name)}
		}

		if existing, ok := p.Nodes[ref.Name]; ok {
			// Already resolved via another path; enforce one-version-per-name
			// (Open Question (a)).
			sReq := selector.Request{Ref: ref, Target: req.Target, PreferredCookbook: preferredCookbook, HostOS: req.HostOS, Trust: req.Trust}
			res, err := selector.SelectRecipe(idx, sReq)
			var unsat *muserrors.UnsatisfiedVersionConstraint
			if errors.As(err, &unsat) {
				// The index threaded here is already pruned to the planned
				// version, so an unsatisfiable reference asks for another one.
				return nil, &muserrors.ConflictingVersions{Name: ref.Name, First: existing.Version, Second: ref.Version}
			}
			if err != nil {
				return nil, err
			}
			if res.Version != existing.Version {
				return nil, &muserrors.ConflictingVersions{Name: ref.Name, First: existing.Version, Second: res.Version}
			}
			return idx, nil
		}

		sReq := selector.Request{Ref: ref, Target: req.Target, PreferredCookbook: preferredCookbook, HostOS: req.HostOS, Trust: req.Trust}
		res, err := selector.SelectRecipe(idx, sReq)
		if err != nil {
			return nil, err
		}

		recipe, ok := res.Index.Lookup(res.Name, res.Version, res.Cookbook)
		if !ok {
			return nil, fmt.Errorf("internal error: selected recipe %s==%s@%s missing from index", res.Name, res.Version, res.Cookbook)
		}

		variant, err := hostVariant(recipe, req.Target, req.HostOS)
		if err != nil {
			return nil, err
		}

		node := &Node{
			Name: res.Name, Version: res.Version, Cookbook: res.Cookbook,
			Recipe: recipe, Variant: variant,
			RequiredTools: variant.RequiredTools,
		}
		p.Nodes[res.Name] = node

		stack[ref.Name] = true
		stackOrder = append(stackOrder, ref.Name)
		defer func() {
			delete(stack, ref.Name)
			stackOrder = stackOrder[:len(stackOrder)-1]
		}()

		currentIdx := res.Index
		for _, depRefStr := range variant.Dependencies {
			depRef, err := version.ParseReference(depRefStr)
			if err != nil {
				return nil, fmt.Errorf("parsing dependency reference %q of %s: %w", depRefStr, res.Name, err)
			}
			childPreferred := res.Cookbook
			nextIdx, err := expand(depRef, childPreferred, currentIdx)
			if err != nil {
				return nil, err
			}
			currentIdx = nextIdx
			node.DependencyNVCs = append(node.DependencyNVCs, depRef.Name)
		}

		return currentIdx, nil
	}

	if _, err := expand(req.Root, "", idx); err != nil {
		return nil, err
	}

	if err := batch(p); err != nil {
		return nil, err
	}
	return p, nil
}

// hostVariant picks the recipe's best-matching host platform (C2) and
// returns its requested-target variant.
func hostVariant(r *catalog.Recipe, target, hostOS string) (catalog.Variant, error) {
	declared := make([]string, 0, len(r.Platforms))
	for host := range r.Platforms {
		declared = append(declared, host)
	}
	best := platform.PickBest(declared, hostOS)
	if best == "" {
		return catalog.Variant{}, &muserrors.NoCompatibleCookbook{Name: r.Name, Version: r.Version}
	}
	variant, ok := r.Platforms[best][target]
	if !ok {
		return catalog.Variant{}, &muserrors.TargetNotSupported{Name: r.Name, Version: r.Version, Target: target}
	}
	return variant, nil
}

// batch constructs the reverse dependency map and repeatedly peels ready
// nodes (spec.md §4.6 "Batching").
func batch(p *Plan) error {
	remaining := make(map[string]map[string]bool, len(p.Nodes))
	for name, node := range p.Nodes {
		deps := make(map[string]bool, len(node.DependencyNVCs))
		for _, dep := range node.DependencyNVCs {
			deps[dep] = true
		}
		remaining[name] = deps
	}

	for len(remaining) > 0 {
		var ready []string
		for name, deps := range remaining {
			if len(deps) == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			// Defensive check: stack-based detection should have already
			// caught any cycle.
			names := make([]string, 0, len(remaining))
			for name := range remaining {
				names = append(names, name)
			}
			return &muserrors.CycleDetected{Cycle: names}
		}

		for _, name := range ready {
			delete(remaining, name)
		}
		for _, deps := range remaining {
			for _, name := range ready {
				delete(deps, name)
			}
		}
		p.Batches = append(p.Batches, ready)
	}
	return nil
}
