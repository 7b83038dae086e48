// Package selector resolves an item reference against the sorted catalog
// index, applying version-constraint pruning (C1) and platform/cookbook
// disambiguation (C2), per spec.md §4.5.
package selector

import (
	"errors"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/platform"
	"github.com/mussels-build/mussels/internal/version"
)

// TrustChecker reports whether a cookbook name is trusted, so the selector
// can exclude untrusted cookbooks from disambiguation when the caller
// requires it (spec.md §4.4's hard "untrusted cookbook" error is raised one
// layer up once a build is attempted; callers that want inclusive results
// leave Request.Trust nil).
type TrustChecker interface {
	IsTrusted(name string) bool
}

// Request parameterizes one selection.
type Request struct {
	Ref    version.Reference
	Target string // target architecture tag; empty means "don't constrain"
	// PreferredCookbook is the resolving recipe's cookbook, carried forward
	// by the planner so unqualified child references prefer their parent's
	// cookbook (spec.md §4.6).
	PreferredCookbook string
	HostOS            string
	Trust             TrustChecker // nil disables the trust filter
}

// Result is a resolved item plus the pruned index snapshot (spec.md §9's
// persistent-index redesign note; SPEC_FULL.md §D Open Question (a)
// context).
type Result struct {
	Name, Version, Cookbook string
	Index                   *catalog.Index
}

// SelectRecipe resolves a reference against the recipe index.
func SelectRecipe(idx *catalog.Index, req Request) (Result, error) {
	return selectFrom(idx, idx.Recipes, req, true)
}

// SelectTool resolves a reference against the tool index. Tool entries
// carry no per-target membership, so target filtering is skipped.
func SelectTool(idx *catalog.Index, req Request) (Result, error) {
	return selectFrom(idx, idx.Tools, req, false)
}

func selectFrom(idx *catalog.Index, byName map[string][]*catalog.SortedVersion, req Request, checkTarget bool) (Result, error) {
	versions, ok := byName[req.Ref.Name]
	if !ok || len(versions) == 0 {
		return Result{}, &muserrors.UnknownItem{Reference: req.Ref.String()}
	}

	sorted := catalog.VersionStrings(versions)
	selectedVersion, remaining, err := version.Apply(req.Ref, sorted)
	if err != nil {
		if errors.Is(err, version.ErrUnsatisfiedConstraint) {
			return Result{}, &muserrors.UnsatisfiedVersionConstraint{
				Name:       req.Ref.Name,
				Constraint: req.Ref.String(),
			}
		}
		return Result{}, err
	}

	// Find the SortedVersion record for the selected version to disambiguate
	// cookbooks.
	var sv *catalog.SortedVersion
	for _, v := range versions {
		if v.Version == selectedVersion {
			sv = v
			break
		}
	}

	cookbook, err := disambiguate(idx, sv, req, checkTarget)
	if err != nil {
		return Result{}, err
	}

	clone := idx.Clone()
	prunedSet := make(map[string]bool, len(remaining))
	for _, v := range remaining {
		prunedSet[v] = true
	}
	filtered := make([]*catalog.SortedVersion, 0, len(remaining))
	for _, v := range versions {
		if prunedSet[v.Version] {
			filtered = append(filtered, v)
		}
	}
	if checkTarget {
		clone.Recipes[req.Ref.Name] = filtered
	} else {
		clone.Tools[req.Ref.Name] = filtered
	}

	return Result{
		Name:     req.Ref.Name,
		Version:  selectedVersion,
		Cookbook: cookbook,
		Index:    clone,
	}, nil
}

// disambiguate picks the eligible cookbook per spec.md §4.5: a cookbook is
// eligible iff (a) the reference left the cookbook unspecified or named it
// exactly, and (b) the cookbook's recipe for this version supports the
// requested target under the host platform (C2 applied to the declared
// host-platform tags, then target membership checked against that host's
// variant map). Preference order: "local" beats the preferred cookbook
// beats any other.
func disambiguate(idx *catalog.Index, sv *catalog.SortedVersion, req Request, checkTarget bool) (string, error) {
	eligible := make([]string, 0, len(sv.Cookbooks))
	for name := range sv.Cookbooks {
		if req.Ref.Cookbook != "" && name != req.Ref.Cookbook {
			continue
		}
		if req.Trust != nil && !req.Trust.IsTrusted(name) {
			continue
		}
		if checkTarget && req.Target != "" {
			if !recipeSupportsTarget(idx, req.Ref.Name, sv.Version, name, req.Target, req.HostOS) {
				continue
			}
		}
		eligible = append(eligible, name)
	}

	if len(eligible) == 0 {
		if req.Ref.Cookbook != "" {
			return "", &muserrors.NoCompatibleCookbook{Name: req.Ref.Name, Version: sv.Version}
		}
		if checkTarget && req.Target != "" {
			return "", &muserrors.TargetNotSupported{Name: req.Ref.Name, Version: sv.Version, Target: req.Target}
		}
		return "", &muserrors.NoCompatibleCookbook{Name: req.Ref.Name, Version: sv.Version}
	}

	best := eligible[0]
	for _, name := range eligible[1:] {
		if rank(name, req.PreferredCookbook) < rank(best, req.PreferredCookbook) {
			best = name
		} else if rank(name, req.PreferredCookbook) == rank(best, req.PreferredCookbook) && name < best {
			best = name
		}
	}
	return best, nil
}

// rank implements "local beats preferred beats any other": lower is better.
func rank(name, preferred string) int {
	switch {
	case name == catalog.LocalCookbookName:
		return 0
	case preferred != "" && name == preferred:
		return 1
	default:
		return 2
	}
}

// recipeSupportsTarget looks up the raw recipe at (name, version, cookbook)
// and checks whether any of its declared host-platform tags matches hostOS
// (via C2 aliasing) and whether that host's variant map declares the
// requested target.
func recipeSupportsTarget(idx *catalog.Index, name, ver, cookbook, target, hostOS string) bool {
	r, ok := idx.Lookup(name, ver, cookbook)
	if !ok {
		return false
	}
	declaredHosts := make([]string, 0, len(r.Platforms))
	for host := range r.Platforms {
		declaredHosts = append(declaredHosts, host)
	}
	best := platform.PickBest(declaredHosts, hostOS)
	if best == "" {
		return false
	}
	variants, ok := r.Platforms[best]
	if !ok {
		return false
	}
	_, ok = variants[target]
	return ok
}
