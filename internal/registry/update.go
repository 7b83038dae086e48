package registry

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/mussels-build/mussels/internal/log"
)

// Update clones (if absent) or fast-forward pulls (if present) every
// registry entry that carries a URL, into its checkout path (spec.md §4.4
// "update()"). The "local" cookbook and entries with no URL (a bare local
// directory registered by path) are skipped.
func Update(r *Registry, logger log.Logger) []error {
	if logger == nil {
		logger = log.Default()
	}
	var errs []error
	for _, e := range r.List() {
		if e.URL == "" {
			continue
		}
		if err := updateOne(e, logger); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errs
}

// UpdateOne clones or fast-forward-pulls a single named entry.
func UpdateOne(r *Registry, name string, logger log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	e, ok := r.Show(name)
	if !ok {
		return fmt.Errorf("unknown cookbook %q", name)
	}
	if e.URL == "" {
		return nil
	}
	return updateOne(e, logger)
}

func updateOne(e *Entry, logger log.Logger) error {
	repo, err := git.PlainOpen(e.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logger.Info("cloning cookbook", "name", e.Name, "url", e.URL)
		_, err := git.PlainClone(e.Path, false, &git.CloneOptions{
			URL:      e.URL,
			Depth:    1,
			Progress: nil,
		})
		return err
	}
	if err != nil {
		return fmt.Errorf("opening cookbook checkout: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening cookbook worktree: %w", err)
	}

	logger.Info("updating cookbook", "name", e.Name, "url", e.URL)
	err = wt.Pull(&git.PullOptions{RemoteName: "origin"})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}
