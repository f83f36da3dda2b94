package incidents

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"kaieval/internal/logging"
)

// WorkTree is the version-control view the correlator needs.
type WorkTree interface {
	// ModifiedFiles lists paths, relative to the repository root, that differ
	// from HEAD in the working tree.
	ModifiedFiles(ctx context.Context) ([]string, error)
	// Diff returns the textual diff of path against HEAD.
	Diff(ctx context.Context, path string) (string, error)
}

// Correlate sets Diff on every entry whose URI ends with a modified path.
// One modified path may match several URIs; each gets the same diff text.
// Entries without a match are left untouched. It returns the number of
// entries updated.
func Correlate(ctx context.Context, m Map, wt WorkTree) (int, error) {
	modified, err := wt.ModifiedFiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list modified files: %w", err)
	}

	uris := m.URIs()
	updated := 0
	for _, p := range modified {
		rel := normalizeRel(p)
		var matches []string
		for _, uri := range uris {
			if hasPathSuffix(uri, rel) {
				matches = append(matches, uri)
			}
		}
		if len(matches) == 0 {
			logging.IncidentsDebug("modified file %s has no incidents", rel)
			continue
		}

		diff, err := wt.Diff(ctx, p)
		if err != nil {
			return updated, fmt.Errorf("diff %s: %w", p, err)
		}
		for _, uri := range matches {
			text := diff
			m[uri].Diff = &text
			updated++
		}
		logging.IncidentsDebug("attached diff of %s to %d entries", rel, len(matches))
	}

	logging.Incidents("correlated %d modified files, %d entries received a diff", len(modified), updated)
	return updated, nil
}

func normalizeRel(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(p), "./")
}

// hasPathSuffix reports whether uri ends with rel on a path boundary, so
// "xsrc/Foo.java" does not match "src/Foo.java".
func hasPathSuffix(uri, rel string) bool {
	if rel == "" || !strings.HasSuffix(uri, rel) {
		return false
	}
	if len(uri) == len(rel) {
		return true
	}
	return uri[len(uri)-len(rel)-1] == '/'
}
