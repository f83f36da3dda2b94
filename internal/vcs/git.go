// Package vcs exposes the git working tree as the incidents.WorkTree the diff
// correlator consumes.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"kaieval/internal/logging"
)

// GitWorkTree runs the git binary against a repository directory.
type GitWorkTree struct {
	dir string
	git string
}

// NewGitWorkTree checks that dir is inside a git work tree and anchors every
// later command at the top of that tree, so listed paths and diffed paths
// share the same root even when dir is a subdirectory.
func NewGitWorkTree(ctx context.Context, dir string) (*GitWorkTree, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found on PATH: %w", err)
	}
	w := &GitWorkTree{dir: dir, git: gitPath}
	out, err := w.run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) != "true" {
		return nil, fmt.Errorf("%s is not a git work tree", dir)
	}
	top, err := w.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	w.dir = strings.TrimSpace(top)
	return w, nil
}

// Dir returns the top of the work tree.
func (w *GitWorkTree) Dir() string { return w.dir }

// ModifiedFiles lists tracked paths that differ from HEAD, relative to the
// repository root.
func (w *GitWorkTree) ModifiedFiles(ctx context.Context) ([]string, error) {
	out, err := w.run(ctx, "diff", "--name-only", "HEAD")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	logging.VCS("%d modified files in %s", len(files), w.dir)
	return files, nil
}

// Diff returns the diff of path against HEAD.
func (w *GitWorkTree) Diff(ctx context.Context, path string) (string, error) {
	return w.run(ctx, "diff", "HEAD", "--", path)
}

func (w *GitWorkTree) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", w.dir, "-c", "core.quotepath=off"}, args...)
	cmd := exec.CommandContext(ctx, w.git, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		logging.VCSError("git %s failed: %v: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
