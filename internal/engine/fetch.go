package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mussels-build/mussels/internal/catalog"
	"github.com/mussels-build/mussels/internal/config"
	"github.com/mussels-build/mussels/internal/httputil"
	"github.com/mussels-build/mussels/internal/progress"
)

const userAgent = "mussels-build-tool/1.0"

// archiveFilename derives the on-disk archive name from a recipe's
// source_url, applying archive_rename if present (spec.md §4.8 "Fetch").
func archiveFilename(sourceURL string, rename *catalog.Rename) string {
	name := filepath.Base(sourceURL)
	if idx := strings.Index(name, "?"); idx != -1 {
		name = name[:idx]
	}
	if rename != nil && name == rename.From {
		name = rename.To
	}
	return name
}

// fetch downloads the recipe's archive into the shared download cache,
// skipping the download if the file is already present there.
func (rc *recipeContext) fetch(ctx context.Context) (string, error) {
	filename := archiveFilename(rc.node.Recipe.SourceURL, rc.node.Recipe.ArchiveRename)
	destPath := rc.engine.Workspace.DownloadPath(filename)

	if _, err := os.Stat(destPath); err == nil {
		rc.engine.Logger.Info("already downloaded", "recipe", rc.node.Name, "file", filename)
		return destPath, nil
	}

	rc.engine.Logger.Info("downloading", "recipe", rc.node.Name, "url", rc.node.Recipe.SourceURL)
	if err := downloadWithRetry(ctx, rc.node.Recipe.SourceURL, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// downloadWithRetry performs an HTTPS download to a temp file beside dest,
// then renames into place atomically, retrying transient failures with
// exponential backoff (spec.md §9's suspension-point contract: a blocking,
// non-cooperative download).
func downloadWithRetry(ctx context.Context, url, destPath string) error {
	if !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("source_url must use https, got: %s", url)
	}

	maxRetries := config.GetFetchRetries()
	baseDelay := time.Second

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := doDownload(ctx, url, destPath); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("download failed after %d retries: %w", maxRetries, lastErr)
}

func doDownload(ctx context.Context, url, destPath string) error {
	opts := httputil.DefaultOptions()
	opts.Timeout = config.GetFetchTimeout()
	client := httputil.NewSecureClient(opts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s fetching %s", resp.Status, url)
	}

	tmpPath := destPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating download cache directory: %w", err)
	}
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var writer io.Writer = out
	var pw *progress.Writer
	if progress.ShouldShowProgress() && resp.ContentLength > 0 {
		pw = progress.NewWriter(out, resp.ContentLength, os.Stdout)
		writer = pw
	}

	_, copyErr := io.Copy(writer, resp.Body)
	if pw != nil {
		pw.Finish()
	}
	out.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing archive: %w", copyErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalizing download: %w", err)
	}
	return nil
}
