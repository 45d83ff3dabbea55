// Package gitfilter inspects the local git checkout to decide whether a
// change actually needs CI: which paths a commit touched, which of those are
// submodules, and whether anything build-relevant changed at all.
//
// The local history must be fetched with depth of at least 2 for diffing.
package gitfilter

import (
	"context"
	"os/exec"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Paths which never require a CI run on their own.
var ignorablePathPrefixes = []string{
	"docs/",
	"experimental/",
}

// ModifiedPaths returns the paths modified since baseRef, relative to the
// repo root.
func ModifiedPaths(ctx context.Context, repoDir, baseRef string) ([]string, error) {
	output, err := runGit(ctx, repoDir, "diff", "--name-only", baseRef)
	if err != nil {
		return nil, err
	}
	return splitLines(output), nil
}

func runGit(ctx context.Context, repoDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "Failed to run git %s; output:\n%s", strings.Join(args, " "), string(output))
	}
	return string(output), nil
}

// SubmodulePaths returns the registered submodule paths of the repo. A repo
// without a .gitmodules file has none; that is not an error.
func SubmodulePaths(ctx context.Context, repoDir string) ([]string, error) {
	// Output lines look like "submodule.third-party/foo.path third-party/foo".
	output, err := runGit(ctx, repoDir, "config", "--file", ".gitmodules", "--get-regexp", `\.path$`)
	if err != nil {
		return []string{}, nil
	}
	rv := []string{}
	for _, line := range splitLines(output) {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			rv = append(rv, fields[1])
		}
	}
	return rv, nil
}

// IsCIRunRequired returns true if any modified path affects the build, i.e.
// is not documentation or experimental code.
func IsCIRunRequired(modifiedPaths []string) bool {
	for _, modified := range modifiedPaths {
		if !isIgnorable(modified) {
			return true
		}
	}
	return false
}

func isIgnorable(p string) bool {
	for _, prefix := range ignorablePathPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return strings.HasSuffix(path.Base(p), ".md")
}

func splitLines(output string) []string {
	rv := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			rv = append(rv, line)
		}
	}
	return rv
}
