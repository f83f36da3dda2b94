package incidents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorkTree struct {
	modified []string
	diffs    map[string]string
	listErr  error
	calls    []string
}

func (f *fakeWorkTree) ModifiedFiles(context.Context) ([]string, error) {
	return f.modified, f.listErr
}

func (f *fakeWorkTree) Diff(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	d, ok := f.diffs[path]
	if !ok {
		return "", errors.New("no such path")
	}
	return d, nil
}

func newMap(uris ...string) Map {
	m := Map{}
	for _, u := range uris {
		m[u] = &FileEntry{Incidents: []Incident{{URI: u}}}
	}
	return m
}

func TestCorrelate_SuffixMatch(t *testing.T) {
	m := newMap("file:///repo/src/Foo.java", "file:///repo/src/Unchanged.java")
	wt := &fakeWorkTree{
		modified: []string{"src/Foo.java"},
		diffs:    map[string]string{"src/Foo.java": "--- a/src/Foo.java\n+++ b/src/Foo.java\n"},
	}

	n, err := Correlate(context.Background(), m, wt)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NotNil(t, m["file:///repo/src/Foo.java"].Diff)
	assert.Equal(t, wt.diffs["src/Foo.java"], *m["file:///repo/src/Foo.java"].Diff)
	assert.Nil(t, m["file:///repo/src/Unchanged.java"].Diff)
}

func TestCorrelate_SameFileUnderSeveralURIs(t *testing.T) {
	m := newMap("file:///repo/src/Foo.java", "/repo/src/Foo.java", "src/Foo.java")
	wt := &fakeWorkTree{
		modified: []string{"./src/Foo.java"},
		diffs:    map[string]string{"./src/Foo.java": "diff text"},
	}

	n, err := Correlate(context.Background(), m, wt)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for uri, fe := range m {
		require.NotNil(t, fe.Diff, uri)
		assert.Equal(t, "diff text", *fe.Diff, uri)
	}
	assert.Equal(t, []string{"./src/Foo.java"}, wt.calls, "diff should be computed once per modified path")
}

func TestCorrelate_RequiresPathBoundary(t *testing.T) {
	m := newMap("file:///repo/xsrc/Foo.java")
	wt := &fakeWorkTree{modified: []string{"src/Foo.java"}, diffs: map[string]string{"src/Foo.java": "d"}}

	n, err := Correlate(context.Background(), m, wt)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, m["file:///repo/xsrc/Foo.java"].Diff)
	assert.Empty(t, wt.calls)
}

func TestCorrelate_Errors(t *testing.T) {
	_, err := Correlate(context.Background(), newMap("a"), &fakeWorkTree{listErr: errors.New("not a repo")})
	assert.ErrorContains(t, err, "list modified files")

	_, err = Correlate(context.Background(), newMap("file:///r/a.go"), &fakeWorkTree{modified: []string{"a.go"}})
	assert.ErrorContains(t, err, "diff a.go")
}

func TestHasPathSuffix(t *testing.T) {
	tests := []struct {
		uri, rel string
		want     bool
	}{
		{"file:///repo/src/Foo.java", "src/Foo.java", true},
		{"src/Foo.java", "src/Foo.java", true},
		{"file:///repo/xsrc/Foo.java", "src/Foo.java", false},
		{"file:///repo/src/Foo.java", "", false},
		{"file:///repo/src/Foo.javax", "src/Foo.java", false},
	}
	for _, tt := range tests {
		if got := hasPathSuffix(tt.uri, tt.rel); got != tt.want {
			t.Errorf("hasPathSuffix(%q, %q) = %v, want %v", tt.uri, tt.rel, got, tt.want)
		}
	}
}
