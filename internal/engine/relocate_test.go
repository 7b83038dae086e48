package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/log"
	"github.com/mussels-build/mussels/internal/muserrors"
	"github.com/mussels-build/mussels/internal/planner"
	"github.com/mussels-build/mussels/internal/workspace"
)

func TestRelocate_CopiesMatchesIntoInstallTree(t *testing.T) {
	dataDir := t.TempDir()
	ws := workspace.NewAt(dataDir)
	if err := ws.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	buildDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(buildDir, "build"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(buildDir, "build", "foo"), []byte("binary"), 0o755); err != nil {
		t.Fatal(err)
	}

	engine := &Engine{Workspace: ws, Target: "host", Logger: log.NewNoop()}
	node := &planner.Node{
		Name: "foo",
		Variant: catalog.Variant{
			InstallPaths: map[string][]string{
				"bin": {"build/foo"},
			},
		},
	}
	rc := &recipeContext{engine: engine, node: node}

	if err := rc.relocate(buildDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	installed := filepath.Join(ws.InstallTargetDir("host"), "bin", "foo")
	content, err := os.ReadFile(installed)
	if err != nil {
		t.Fatalf("expected installed file: %v", err)
	}
	if string(content) != "binary" {
		t.Fatalf("unexpected content: %s", content)
	}
}

func TestRelocate_MissingMatchIsAnError(t *testing.T) {
	dataDir := t.TempDir()
	ws := workspace.NewAt(dataDir)
	if err := ws.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	buildDir := t.TempDir()

	engine := &Engine{Workspace: ws, Target: "host", Logger: log.NewNoop()}
	node := &planner.Node{
		Name: "foo",
		Variant: catalog.Variant{
			InstallPaths: map[string][]string{"bin": {"build/missing"}},
		},
	}
	rc := &recipeContext{engine: engine, node: node}

	err := rc.relocate(buildDir)
	if _, ok := err.(*muserrors.InstallPathMissing); !ok {
		t.Fatalf("expected *muserrors.InstallPathMissing, got %T (%v)", err, err)
	}
}

func TestRelocate_NoInstallPathsIsNoop(t *testing.T) {
	engine := &Engine{Logger: log.NewNoop()}
	node := &planner.Node{Name: "foo", Variant: catalog.Variant{}}
	rc := &recipeContext{engine: engine, node: node}

	if err := rc.relocate(t.TempDir()); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
