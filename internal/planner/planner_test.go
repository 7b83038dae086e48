package planner

import (
	"errors"
	"testing"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/version"
)

func leaf(name, ver string, deps []string) *catalog.Recipe {
	return &catalog.Recipe{
		Name: name, Version: ver, Cookbook: "local",
		Type: catalog.FileTypeRecipe, Kind: catalog.KindLeaf, MusselsVersion: 0.1,
		SourceURL: "https://example.com/" + name + "-" + ver + ".tar.gz",
		Platforms: map[string]map[string]catalog.Variant{
			"linux": {"host": {Dependencies: deps, BuildScript: catalog.BuildScript{Make: "true"}}},
		},
	}
}

func TestPlan_LinearChain(t *testing.T) {
	cat := &catalog.Catalog{Recipes: []*catalog.Recipe{
		leaf("A", "1.0", []string{"B==1.0"}),
		leaf("B", "1.0", []string{"C==1.0"}),
		leaf("C", "1.0", nil),
	}}
	idx := catalog.BuildIndex(cat)

	ref, _ := version.ParseReference("A==1.0")
	plan, err := Plan(idx, Request{Root: ref, Target: "host", HostOS: "linux"})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Batches) != 3 {
		t.Fatalf("expected 3 batches, got %d: %v", len(plan.Batches), plan.Batches)
	}
	if plan.Batches[0][0] != "C" || plan.Batches[1][0] != "B" || plan.Batches[2][0] != "A" {
		t.Fatalf("expected batches [C][B][A], got %v", plan.Batches)
	}
}

func TestPlan_Diamond(t *testing.T) {
	cat := &catalog.Catalog{Recipes: []*catalog.Recipe{
		leaf("A", "1.0", []string{"B==1.0", "C==1.0"}),
		leaf("B", "1.0", []string{"D==1.0"}),
		leaf("C", "1.0", []string{"D==1.0"}),
		leaf("D", "1.0", nil),
	}}
	idx := catalog.BuildIndex(cat)

	ref, _ := version.ParseReference("A==1.0")
	plan, err := Plan(idx, Request{Root: ref, Target: "host", HostOS: "linux"})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Nodes) != 4 {
		t.Fatalf("expected D to appear exactly once across 4 nodes, got %d", len(plan.Nodes))
	}
	if plan.Batches[0][0] != "D" {
		t.Fatalf("expected D in the first batch, got %v", plan.Batches)
	}
	last := plan.Batches[len(plan.Batches)-1]
	if len(last) != 1 || last[0] != "A" {
		t.Fatalf("expected A in the final batch, got %v", plan.Batches)
	}
}

func TestPlan_ConflictingVersions(t *testing.T) {
	cat := &catalog.Catalog{Recipes: []*catalog.Recipe{
		leaf("A", "1.0", []string{"B==1.0", "C==1.0"}),
		leaf("B", "1.0", []string{"D==1.0"}),
		leaf("C", "1.0", []string{"D==2.0"}),
		leaf("D", "1.0", nil),
		leaf("D", "2.0", nil),
	}}
	idx := catalog.BuildIndex(cat)

	ref, _ := version.ParseReference("A==1.0")
	_, err := Plan(idx, Request{Root: ref, Target: "host", HostOS: "linux"})
	var conflictErr *muserrors.ConflictingVersions
	if err == nil {
		t.Fatal("expected ConflictingVersions")
	}
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected *muserrors.ConflictingVersions, got %T: %v", err, err)
	}
	if conflictErr.Name != "D" {
		t.Fatalf("expected conflict on %q, got %q", "D", conflictErr.Name)
	}
}

func TestPlan_Cycle(t *testing.T) {
	cat := &catalog.Catalog{Recipes: []*catalog.Recipe{
		leaf("X", "1.0", []string{"Y==1.0"}),
		leaf("Y", "1.0", []string{"Z==1.0"}),
		leaf("Z", "1.0", []string{"X==1.0"}),
	}}
	idx := catalog.BuildIndex(cat)

	ref, _ := version.ParseReference("X==1.0")
	_, err := Plan(idx, Request{Root: ref, Target: "host", HostOS: "linux"})
	var cycleErr *muserrors.CycleDetected
	if err == nil {
		t.Fatal("expected CycleDetected")
	}
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *muserrors.CycleDetected, got %T: %v", err, err)
	}
}
