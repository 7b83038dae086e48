package toolchain

import (
	"testing"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/planner"
)

// fakeDetector reports success only for strategies whose sole path check
// is listed in found.
type fakeDetector struct{ found map[string]bool }

func (f fakeDetector) Detect(strategy catalog.DetectionStrategy) (bool, string) {
	for _, p := range strategy.PathChecks {
		if f.found[p] {
			return true, p
		}
	}
	return false, ""
}

func tool(name, ver string, pathCheck string) *catalog.Tool {
	return &catalog.Tool{
		Name: name, Version: ver, Cookbook: "local",
		Type: catalog.FileTypeTool, MusselsVersion: 0.1,
		Platforms: map[string]catalog.DetectionStrategy{
			"linux": {PathChecks: []string{pathCheck}},
		},
	}
}

func planWithTools(tools ...string) *planner.Plan {
	return &planner.Plan{
		Nodes: map[string]*planner.Node{
			"pkg": {Name: "pkg", Version: "1.0", Cookbook: "local", RequiredTools: tools},
		},
	}
}

func TestValidate_PreferredToolFound(t *testing.T) {
	cat := &catalog.Catalog{Tools: []*catalog.Tool{
		tool("gcc", "12.0", "/usr/bin/gcc-12"),
		tool("gcc", "11.0", "/usr/bin/gcc-11"),
	}}
	idx := catalog.BuildIndex(cat)
	plan := planWithTools("gcc==12.0")
	detector := fakeDetector{found: map[string]bool{"/usr/bin/gcc-12": true}}

	result := Validate(idx, plan, "host", "linux", nil, detector, nil)
	if len(result.Missing) != 0 {
		t.Fatalf("expected no missing tools, got %v", result.Missing)
	}
	rec, ok := result.Toolchain["gcc"]
	if !ok {
		t.Fatal("expected gcc resolved")
	}
	if rec.Version != "12.0" {
		t.Fatalf("expected version 12.0, got %s", rec.Version)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", result.Warnings)
	}
}

func TestValidate_DowngradesOnDetectionFailure(t *testing.T) {
	cat := &catalog.Catalog{Tools: []*catalog.Tool{
		tool("gcc", "12.0", "/usr/bin/gcc-12"),
		tool("gcc", "11.0", "/usr/bin/gcc-11"),
	}}
	idx := catalog.BuildIndex(cat)
	plan := planWithTools("gcc==12.0")
	// Only the older version is actually present on this host.
	detector := fakeDetector{found: map[string]bool{"/usr/bin/gcc-11": true}}

	result := Validate(idx, plan, "host", "linux", nil, detector, nil)
	rec, ok := result.Toolchain["gcc"]
	if !ok {
		t.Fatalf("expected gcc resolved via downgrade, missing: %v", result.Missing)
	}
	if rec.Version != "11.0" {
		t.Fatalf("expected downgrade to 11.0, got %s", rec.Version)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one downgrade warning, got %v", result.Warnings)
	}
}

func TestValidate_MissingWhenNoVersionDetected(t *testing.T) {
	cat := &catalog.Catalog{Tools: []*catalog.Tool{
		tool("gcc", "12.0", "/usr/bin/gcc-12"),
	}}
	idx := catalog.BuildIndex(cat)
	plan := planWithTools("gcc==12.0")
	detector := fakeDetector{found: map[string]bool{}}

	result := Validate(idx, plan, "host", "linux", nil, detector, nil)
	if len(result.Toolchain) != 0 {
		t.Fatalf("expected empty toolchain, got %v", result.Toolchain)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "gcc" {
		t.Fatalf("expected gcc reported missing, got %v", result.Missing)
	}
}

func TestValidate_UnionDeduplicatesByName(t *testing.T) {
	cat := &catalog.Catalog{Tools: []*catalog.Tool{
		tool("make", "4.3", "/usr/bin/make"),
	}}
	idx := catalog.BuildIndex(cat)
	plan := &planner.Plan{Nodes: map[string]*planner.Node{
		"a": {Name: "a", RequiredTools: []string{"make==4.3"}},
		"b": {Name: "b", RequiredTools: []string{"make==4.3"}},
	}}
	detector := fakeDetector{found: map[string]bool{"/usr/bin/make": true}}

	result := Validate(idx, plan, "host", "linux", nil, detector, nil)
	if len(result.Toolchain) != 1 {
		t.Fatalf("expected one deduplicated tool entry, got %d", len(result.Toolchain))
	}
}
