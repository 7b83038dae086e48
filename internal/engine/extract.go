package engine

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	lzip "github.com/sorairolake/lzip-go"
	"github.com/ulikunitz/xz"

	"github.com/mussels-build/mussels/internal/muserrors"
)

// archiveStem strips a known compound archive extension from filename, on
// the assumption the archive unpacks a single top-level directory of that
// name (spec.md §9 "Archive handling").
func archiveStem(filename string) string {
	lower := strings.ToLower(filename)
	suffixes := []string{".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar.zst", ".tzst", ".tar.lz", ".tlz", ".tar", ".zip"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) {
			return filename[:len(filename)-len(suffix)]
		}
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// detectArchiveFormat classifies filename by extension. Only .tar.gz and
// .zip are required by spec.md §6; the remaining tar variants are a
// supplemental extension (SPEC_FULL.md §B) covering cookbooks whose
// upstream archives use xz/zstd/lzip compression.
func detectArchiveFormat(filename string) (string, bool) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return "tar.gz", true
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return "tar.xz", true
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return "tar.zst", true
	case strings.HasSuffix(lower, ".tar.lz"), strings.HasSuffix(lower, ".tlz"):
		return "tar.lz", true
	case strings.HasSuffix(lower, ".tar"):
		return "tar", true
	case strings.HasSuffix(lower, ".zip"):
		return "zip", true
	default:
		return "", false
	}
}

// extract unpacks archivePath into <work>/<target>/<stem>, skipping the
// unpack if the destination already exists (unless the engine was asked to
// rebuild). Returns the build directory and whether it already existed.
func (rc *recipeContext) extract(archivePath string) (string, bool, error) {
	filename := filepath.Base(archivePath)
	stem := archiveStem(filename)
	buildDir := rc.engine.Workspace.WorkTreeDir(rc.engine.Target, stem)

	if rc.engine.Rebuild {
		os.RemoveAll(buildDir)
	}

	if info, err := os.Stat(buildDir); err == nil && info.IsDir() {
		rc.engine.Logger.Info("already extracted", "recipe", rc.node.Name, "dir", buildDir)
		return buildDir, true, nil
	}

	format, ok := detectArchiveFormat(filename)
	if !ok {
		return "", false, &muserrors.UnsupportedArchive{Filename: filename}
	}

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return "", false, &muserrors.ExtractFailed{Filename: filename, Err: err}
	}

	if err := extractArchive(archivePath, buildDir, format); err != nil {
		os.RemoveAll(buildDir)
		return "", false, &muserrors.ExtractFailed{Filename: filename, Err: err}
	}

	return buildDir, false, nil
}

func extractArchive(archivePath, destPath, format string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	switch format {
	case "tar.gz":
		gzr, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		return extractTarReader(tar.NewReader(gzr), destPath)
	case "tar.xz":
		xzr, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		return extractTarReader(tar.NewReader(xzr), destPath)
	case "tar.zst":
		zr, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zr.Close()
		return extractTarReader(tar.NewReader(zr), destPath)
	case "tar.lz":
		lr, err := lzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("creating lzip reader: %w", err)
		}
		return extractTarReader(tar.NewReader(lr), destPath)
	case "tar":
		return extractTarReader(tar.NewReader(file), destPath)
	case "zip":
		return extractZip(archivePath, destPath)
	default:
		return fmt.Errorf("unsupported archive format: %s", format)
	}
}

func extractTarReader(tr *tar.Reader, destPath string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}

		cleanPath := strings.TrimPrefix(header.Name, "./")
		if cleanPath == "" || cleanPath == "." {
			continue
		}
		target := filepath.Join(destPath, cleanPath)
		if !isPathWithinDirectory(target, destPath) {
			return fmt.Errorf("archive entry escapes destination directory: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("creating file: %w", err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("writing file: %w", err)
			}
			f.Close()
		case tar.TypeSymlink:
			if err := validateSymlinkTarget(header.Linkname, target, destPath); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating parent directory: %w", err)
			}
			if err := atomicSymlink(header.Linkname, target); err != nil {
				return fmt.Errorf("creating symlink: %w", err)
			}
		}
	}
	return nil
}

func extractZip(archivePath, destPath string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		cleanPath := strings.TrimPrefix(f.Name, "./")
		if cleanPath == "" || cleanPath == "." {
			continue
		}
		target := filepath.Join(destPath, cleanPath)
		if !isPathWithinDirectory(target, destPath) {
			return fmt.Errorf("zip entry escapes destination directory: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating parent directory: %w", err)
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening file in zip: %w", err)
		}
		outFile, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return fmt.Errorf("creating file: %w", err)
		}
		_, copyErr := io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()
		if copyErr != nil {
			return fmt.Errorf("writing file: %w", copyErr)
		}
	}
	return nil
}

// isPathWithinDirectory reports whether targetPath resolves to a location
// inside basePath, guarding against archive-entry path traversal.
func isPathWithinDirectory(targetPath, basePath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	return absTarget == absBase || strings.HasPrefix(absTarget, absBase+string(os.PathSeparator))
}

// validateSymlinkTarget rejects symlink entries that would escape destPath.
func validateSymlinkTarget(linkTarget, linkLocation, destPath string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("absolute symlink targets are not allowed: %s -> %s", linkLocation, linkTarget)
	}
	resolved := filepath.Join(filepath.Dir(linkLocation), linkTarget)
	if !isPathWithinDirectory(resolved, destPath) {
		return fmt.Errorf("symlink target escapes destination directory: %s -> %s (resolves to %s)", linkLocation, linkTarget, resolved)
	}
	return nil
}

// atomicSymlink creates a symlink via a temp-then-rename sequence to avoid a
// TOCTOU window if the link path already exists.
func atomicSymlink(target, linkPath string) error {
	tmpLink := linkPath + ".tmp"
	os.Remove(tmpLink)
	if err := os.Symlink(target, tmpLink); err != nil {
		return err
	}
	if err := os.Rename(tmpLink, linkPath); err != nil {
		os.Remove(tmpLink)
		return err
	}
	return nil
}
