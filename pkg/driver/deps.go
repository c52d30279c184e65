package driver

import (
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// FetchDependencies clones or updates every git-sourced dependency a
// manifest names into cacheDir/<name>, checking out the pinned Rev when
// one is given. This is CL's `deps` subcommand: reference-data packs
// (periodic-table overrides, shared reaction libraries) live in their
// own git repositories rather than being vendored into a script's own
// project, the same separation the teacher draws between a script and
// its package.yml dependencies.
func FetchDependencies(m *Manifest, cacheDir string) ([]string, error) {
	var logs []string
	for name, dep := range m.Dependencies {
		if dep == nil || dep.Git == "" {
			continue
		}
		dest := filepath.Join(cacheDir, name)
		line, err := fetchOne(name, dep, dest)
		if err != nil {
			return logs, fmt.Errorf("dependencies.%s: %w", name, err)
		}
		logs = append(logs, line)
	}
	return logs, nil
}

func fetchOne(name string, dep *DependencySpec, dest string) (string, error) {
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		return updateOne(name, dep, dest)
	}
	repo, err := git.PlainClone(dest, false, &git.CloneOptions{URL: dep.Git})
	if err != nil {
		return "", fmt.Errorf("clone %s: %w", dep.Git, err)
	}
	if dep.Rev != "" {
		if err := checkoutRev(repo, dep.Rev); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("fetched %s from %s", name, dep.Git), nil
}

func updateOne(name string, dep *DependencySpec, dest string) (string, error) {
	repo, err := git.PlainOpen(dest)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dest, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree %s: %w", dest, err)
	}
	if err := wt.Pull(&git.PullOptions{}); err != nil && err != git.NoErrAlreadyUpToDate {
		return "", fmt.Errorf("pull %s: %w", dest, err)
	}
	if dep.Rev != "" {
		if err := checkoutRev(repo, dep.Rev); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("updated %s in %s", name, dest), nil
}

func checkoutRev(repo *git.Repository, rev string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(rev)}); err != nil {
		return fmt.Errorf("checkout %s: %w", rev, err)
	}
	return nil
}
