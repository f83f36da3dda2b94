// Package incidents indexes analysis-tool output by source file and attaches
// working-tree diffs to the indexed files.
package incidents

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"kaieval/internal/logging"
)

// DefaultExcludedPrefixes are URI prefixes of dependency caches whose
// incidents never belong to the project.
var DefaultExcludedPrefixes = []string{"file:///root/.m2/"}

// Incident is one problem location flagged by the analysis tool. Keys other
// than the named ones are preserved in Extra.
type Incident struct {
	URI        string         `yaml:"uri"`
	Message    string         `yaml:"message,omitempty"`
	LineNumber int            `yaml:"lineNumber,omitempty"`
	CodeSnip   string         `yaml:"codeSnip,omitempty"`
	Variables  map[string]any `yaml:"variables,omitempty"`
	Extra      map[string]any `yaml:",inline"`
}

// FileEntry collects every incident for one file. Diff stays nil until a
// correlation pass finds the file modified.
type FileEntry struct {
	Incidents []Incident `yaml:"incidents"`
	Diff      *string    `yaml:"diff,omitempty"`
}

// Map is keyed by incident URI.
type Map map[string]*FileEntry

// URIs returns the map keys in sorted order.
func (m Map) URIs() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SkipReason tags an item the builder left out.
type SkipReason string

const (
	SkipNoViolations      SkipReason = "no_violations"
	SkipNoIncidents       SkipReason = "no_incidents"
	SkipNoURI             SkipReason = "no_uri"
	SkipExcluded          SkipReason = "excluded_location"
	SkipMalformedEntry    SkipReason = "malformed_entry"
	SkipMalformedIncident SkipReason = "malformed_incident"
)

// Stats summarizes one build.
type Stats struct {
	Indexed int
	Skipped map[SkipReason]int
}

func (s *Stats) skip(r SkipReason) {
	if s.Skipped == nil {
		s.Skipped = make(map[SkipReason]int)
	}
	s.Skipped[r]++
}

// Options controls which incidents are indexed.
type Options struct {
	// ExcludedPrefixes drops incidents whose URI starts with any prefix.
	ExcludedPrefixes []string
	// ProjectRoot, when set, drops incidents whose URI path is not under it.
	ProjectRoot string
}

// Builder turns analysis output into a Map.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder. A nil ExcludedPrefixes uses the defaults.
func NewBuilder(opts Options) *Builder {
	if opts.ExcludedPrefixes == nil {
		opts.ExcludedPrefixes = DefaultExcludedPrefixes
	}
	if opts.ProjectRoot != "" {
		opts.ProjectRoot = path.Clean(opts.ProjectRoot)
	}
	return &Builder{opts: opts}
}

// LoadMap reads an analysis output file and indexes it.
func (b *Builder) LoadMap(filename string) (Map, Stats, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, Stats{}, err
	}
	return b.BuildFrom(data)
}

// BuildFrom parses YAML (or JSON) analysis output and indexes it. Only a
// document that cannot be parsed at all, or whose top level is not a
// sequence, is an error; every other anomaly skips the single item.
func (b *Builder) BuildFrom(data []byte) (Map, Stats, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, Stats{}, fmt.Errorf("failed to parse analysis output: %w", err)
	}
	if doc.Kind == 0 {
		return Map{}, Stats{}, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return Map{}, Stats{}, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, Stats{}, fmt.Errorf("analysis output: top level must be a sequence, got %s", kindName(root.Kind))
	}
	m, stats := b.Build(root)
	return m, stats, nil
}

// Build indexes a sequence node of analysis entries. Violations are walked in
// document order so each file's incidents keep encounter order.
func (b *Builder) Build(entries *yaml.Node) (Map, Stats) {
	m := Map{}
	var stats Stats

	for _, entry := range entries.Content {
		if entry.Kind != yaml.MappingNode {
			stats.skip(SkipMalformedEntry)
			continue
		}
		violations := mappingValue(entry, "violations")
		if violations == nil || violations.Kind != yaml.MappingNode {
			stats.skip(SkipNoViolations)
			continue
		}
		for i := 0; i+1 < len(violations.Content); i += 2 {
			violationID := violations.Content[i].Value
			list := mappingValue(violations.Content[i+1], "incidents")
			if list == nil || list.Kind != yaml.SequenceNode {
				stats.skip(SkipNoIncidents)
				continue
			}
			for _, node := range list.Content {
				var inc Incident
				if err := node.Decode(&inc); err != nil {
					logging.IncidentsDebug("violation %s: undecodable incident at line %d: %v", violationID, node.Line, err)
					stats.skip(SkipMalformedIncident)
					continue
				}
				if inc.URI == "" {
					stats.skip(SkipNoURI)
					continue
				}
				if b.excluded(inc.URI) {
					stats.skip(SkipExcluded)
					continue
				}
				fe, ok := m[inc.URI]
				if !ok {
					fe = &FileEntry{}
					m[inc.URI] = fe
				}
				fe.Incidents = append(fe.Incidents, inc)
				stats.Indexed++
			}
		}
	}

	logging.Incidents("indexed %d incidents across %d files (skipped: %v)", stats.Indexed, len(m), stats.Skipped)
	return m, stats
}

func (b *Builder) excluded(uri string) bool {
	for _, prefix := range b.opts.ExcludedPrefixes {
		if prefix != "" && strings.HasPrefix(uri, prefix) {
			return true
		}
	}
	if b.opts.ProjectRoot == "" {
		return false
	}
	p := uriPath(uri)
	return p != b.opts.ProjectRoot && !strings.HasPrefix(p, strings.TrimSuffix(b.opts.ProjectRoot, "/")+"/")
}

// uriPath returns the path component of a file URI, or the input unchanged
// when it is not a URI.
func uriPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return path.Clean(uri)
	}
	return path.Clean(u.Path)
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.SequenceNode:
		return "sequence"
	default:
		return "document"
	}
}
