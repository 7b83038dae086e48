package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mussels-build/mussels/internal/log"
)

// rawDocument is parsed first to read the discriminating fields
// (mussels_version, type) before committing to a Recipe or Tool shape.
type rawDocument struct {
	MusselsVersion float64  `yaml:"mussels_version"`
	Type           FileType `yaml:"type"`
	Name           string   `yaml:"name"`
	Platforms      yaml.Node `yaml:"platforms"`
	Version        string   `yaml:"version"`
	SourceURL      string   `yaml:"source_url"`
}

// LoadWarning records a file that was skipped during a cookbook walk,
// per spec §4.3 "the file is skipped with a warning".
type LoadWarning struct {
	Path   string
	Reason string
}

func (w LoadWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Reason)
}

// Catalog is the raw, unindexed result of walking one or more cookbook
// roots: every recipe and tool that parsed and validated successfully.
type Catalog struct {
	Recipes  []*Recipe
	Tools    []*Tool
	Warnings []LoadWarning
}

// LoadCookbook walks root (a cookbook directory tree) and parses every
// ".yaml" file found, attributing each loaded definition to cookbookName.
// Malformed or incomplete files are skipped with a warning, not fatal
// (spec §4.3).
func LoadCookbook(root, cookbookName string, logger log.Logger) (*Catalog, error) {
	if logger == nil {
		logger = log.Default()
	}
	cat := &Catalog{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".yaml") {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			cat.Warnings = append(cat.Warnings, LoadWarning{path, readErr.Error()})
			return nil
		}

		rec, tool, warn := parseDocument(data, path, cookbookName)
		if warn != "" {
			cat.Warnings = append(cat.Warnings, LoadWarning{path, warn})
			logger.Warn("skipped catalog file", "path", path, "reason", warn)
			return nil
		}
		if rec != nil {
			cat.Recipes = append(cat.Recipes, rec)
		}
		if tool != nil {
			cat.Tools = append(cat.Tools, tool)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// parseDocument decodes a single catalog YAML file and validates it per
// spec §4.3. Exactly one of the returned (*Recipe, *Tool) is non-nil on
// success; a non-empty warning string means the file was skipped.
func parseDocument(data []byte, path, cookbookName string) (*Recipe, *Tool, string) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Sprintf("invalid YAML: %v", err)
	}

	if raw.MusselsVersion < MinMusselsVersion {
		return nil, nil, fmt.Sprintf("mussels_version %.2f below minimum %.2f", raw.MusselsVersion, MinMusselsVersion)
	}
	switch raw.Type {
	case FileTypeRecipe, FileTypeCollection, FileTypeTool:
	default:
		return nil, nil, fmt.Sprintf("unrecognized type %q", raw.Type)
	}
	if raw.Name == "" {
		return nil, nil, "missing name"
	}
	if raw.Platforms.Kind == 0 {
		return nil, nil, "missing platforms"
	}

	if raw.Type == FileTypeTool {
		var t Tool
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, nil, fmt.Sprintf("invalid tool definition: %v", err)
		}
		t.Cookbook = cookbookName
		t.OriginFile = path
		return nil, &t, ""
	}

	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, nil, fmt.Sprintf("invalid recipe definition: %v", err)
	}
	if raw.Type == FileTypeCollection {
		r.Kind = KindCollection
	} else if r.Kind == "" {
		r.Kind = KindLeaf
	}
	if r.Version == "" {
		return nil, nil, "missing version"
	}
	if r.IsLeaf() && r.SourceURL == "" {
		return nil, nil, "leaf recipe missing url"
	}
	r.Cookbook = cookbookName
	r.OriginFile = path
	return &r, nil, ""
}
