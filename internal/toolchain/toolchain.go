// Package toolchain validates the host tool environment against a plan's
// required tools (spec.md §4.7): gather requirements, probe detection
// strategies, fall back through alternative versions, and assemble the
// toolchain record the recipe engine consumes.
package toolchain

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/log"
	"github.com/mussels-build/mussels/internal/planner"
	"github.com/mussels-build/mussels/internal/platform"
	"github.com/mussels-build/mussels/internal/selector"
	"github.com/mussels-build/mussels/internal/version"
)

// Record is one resolved tool entry in the assembled toolchain.
type Record struct {
	Name, Version, Cookbook string
	ToolPath                string
	Variables               map[string]string
}

// Toolchain maps bare tool name to its resolved Record.
type Toolchain map[string]*Record

// Result is the outcome of validating a plan's tool requirements.
type Result struct {
	Toolchain Toolchain
	Missing   []string // tool names no version satisfied
	Warnings  []string // downgrade notices
}

// Detector probes whether a tool's detection strategy succeeds on the host.
// Implemented by internal/engine so toolchain stays free of exec/fs concerns
// beyond the interface boundary; see engine.ToolDetector.
type Detector interface {
	Detect(strategy catalog.DetectionStrategy) (ok bool, resolvedPath string)
}

// Validate gathers every required_tools reference across plan's nodes,
// resolves each to a preferred tool NVC via the selector, probes detection
// strategies, and falls back through alternatives on failure.
func Validate(idx *catalog.Index, plan *planner.Plan, target, hostOS string, trust selector.TrustChecker, detector Detector, logger log.Logger) Result {
	if logger == nil {
		logger = log.Default()
	}

	// Union of required tool references by bare name, first reference wins
	// for version/cookbook preference (spec.md §4.7 "the union (by NVC) is
	// the preferred toolset").
	seen := make(map[string]bool)
	var refs []string
	for _, node := range plan.Nodes {
		for _, ref := range node.RequiredTools {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	sort.Strings(refs) // deterministic iteration order

	result := Result{Toolchain: make(Toolchain)}

	for _, refStr := range refs {
		ref, err := version.ParseReference(refStr)
		if err != nil {
			result.Missing = append(result.Missing, refStr)
			continue
		}
		if _, already := result.Toolchain[ref.Name]; already {
			continue
		}

		record, warning, ok := resolveTool(idx, ref, target, hostOS, trust, detector)
		if !ok {
			result.Missing = append(result.Missing, ref.Name)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
			logger.Warn("tool downgraded", "tool", ref.Name, "detail", warning)
		}
		result.Toolchain[ref.Name] = record
	}

	return result
}

func resolveTool(idx *catalog.Index, ref version.Reference, target, hostOS string, trust selector.TrustChecker, detector Detector) (*Record, string, bool) {
	sReq := selector.Request{Ref: ref, Target: target, HostOS: hostOS, Trust: trust}
	res, err := selector.SelectTool(idx, sReq)
	if err != nil {
		return nil, "", false
	}

	tool, ok := res.Index.LookupTool(res.Name, res.Version, res.Cookbook)
	if !ok {
		return nil, "", false
	}

	if record, ok := probe(tool, hostOS, detector); ok {
		return record, "", true
	}

	// Exhaust alternatives from highest to lowest, ranked by semver when
	// possible (falls back to the C1 comparator for non-semver tool
	// versions), per spec.md §4.7. Alternatives come from the unpruned index:
	// the selector's snapshot holds only the versions the reference allows.
	alternatives := idx.Tools[ref.Name]
	ranked := rankAlternatives(alternatives)
	for _, sv := range ranked {
		if sv.Version == res.Version {
			continue
		}
		for cookbook := range sv.Cookbooks {
			if trust != nil && !trust.IsTrusted(cookbook) {
				continue
			}
			alt, ok := res.Index.LookupTool(ref.Name, sv.Version, cookbook)
			if !ok {
				continue
			}
			if record, ok := probe(alt, hostOS, detector); ok {
				warning := "preferred version " + res.Version + " of " + ref.Name + " not detected, using " + sv.Version
				return record, warning, true
			}
		}
	}

	return nil, "", false
}

// probe tries a tool's host-platform detection strategy (itself an ordered
// list of path/command/file checks, tried by the detector in that order).
func probe(tool *catalog.Tool, hostOS string, detector Detector) (*Record, bool) {
	declared := make([]string, 0, len(tool.Platforms))
	for host := range tool.Platforms {
		declared = append(declared, host)
	}
	best := platform.PickBest(declared, hostOS)
	if best == "" {
		return nil, false
	}
	strategy := tool.Platforms[best]
	ok, resolvedPath := detector.Detect(strategy)
	if !ok {
		return nil, false
	}
	toolPath := tool.ToolPath
	if toolPath == "" {
		toolPath = resolvedPath
	}
	return &Record{
		Name: tool.Name, Version: tool.Version, Cookbook: tool.Cookbook,
		ToolPath: toolPath, Variables: tool.Variables,
	}, true
}

// rankAlternatives orders tool versions highest-first, preferring semver
// comparison when every version string parses as semver, and falling back
// to the C1 comparator otherwise.
func rankAlternatives(versions []*catalog.SortedVersion) []*catalog.SortedVersion {
	out := append([]*catalog.SortedVersion(nil), versions...)

	allSemver := true
	for _, sv := range out {
		if _, err := semver.NewVersion(sv.Version); err != nil {
			allSemver = false
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if allSemver {
			vi, _ := semver.NewVersion(out[i].Version)
			vj, _ := semver.NewVersion(out[j].Version)
			return vi.GreaterThan(vj)
		}
		return version.Compare(out[i].Version, out[j].Version) > 0
	})
	return out
}
