// Package kailogs discovers migration-attempt results in a log tree and pairs
// each one with its sidecar metadata.
//
// Expected layout:
//
//	<root>/logs/<model>/<app>/<src/file/path...>/<batch_mode>/<timestamp>/.../<batch>/<attempt>/llm_result
//
// with prompt_vars.json in <batch>, the parent of the leaf's directory. When a
// manifest file sits next to the leaf its fields are used instead of path
// positions.
package kailogs

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"kaieval/internal/logging"
	"kaieval/internal/sections"
)

// Options names the files and the anchor segment the resolver looks for.
type Options struct {
	Anchor       string
	ResultFile   string
	MetadataFile string
	ManifestFile string
}

// DefaultOptions returns the conventions used by the migration assistant.
func DefaultOptions() Options {
	return Options{
		Anchor:       "logs",
		ResultFile:   "llm_result",
		MetadataFile: "prompt_vars.json",
		ManifestFile: "llm_result.manifest.yaml",
	}
}

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Resolver turns leaf result files into records.
type Resolver struct {
	opts Options
}

// NewResolver creates a resolver; empty option fields take their defaults.
func NewResolver(opts Options) *Resolver {
	def := DefaultOptions()
	if opts.Anchor == "" {
		opts.Anchor = def.Anchor
	}
	if opts.ResultFile == "" {
		opts.ResultFile = def.ResultFile
	}
	if opts.MetadataFile == "" {
		opts.MetadataFile = def.MetadataFile
	}
	if opts.ManifestFile == "" {
		opts.ManifestFile = def.ManifestFile
	}
	return &Resolver{opts: opts}
}

// Walk lazily resolves every leaf result file under root, in lexical order.
// Unreadable directories are passed over; the walk never fails.
func (r *Resolver) Walk(root string) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logging.WalkDebug("skipping %s: %v", path, err)
				return nil
			}
			if d.IsDir() || d.Name() != r.opts.ResultFile {
				return nil
			}
			if !yield(r.Resolve(path)) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Resolve builds the outcome for a single leaf result file.
func (r *Resolver) Resolve(resultPath string) Outcome {
	out := Outcome{ResultPath: resultPath}

	attemptDir := filepath.Dir(resultPath)
	batchDir := filepath.Dir(attemptDir)
	metadataPath := filepath.Join(batchDir, r.opts.MetadataFile)
	if !isFile(metadataPath) {
		out.Skip = SkipMissingMetadata
		return out
	}

	var (
		loc  Location
		skip SkipReason
		err  error
	)
	manifestPath := filepath.Join(attemptDir, r.opts.ManifestFile)
	if isFile(manifestPath) {
		loc, err = readManifest(manifestPath)
		if err != nil {
			skip = SkipMalformedManifest
		}
	} else {
		loc, skip = DecodePath(resultPath, r.opts.Anchor)
	}
	if skip != "" {
		out.Skip, out.Detail = skip, err
		return out
	}
	loc.ResultPath = resultPath
	loc.MetadataPath = metadataPath

	meta, err := readPromptVars(metadataPath)
	if err != nil {
		out.Skip, out.Detail = SkipUnreadableMetadata, err
		return out
	}
	content, err := os.ReadFile(resultPath)
	if err != nil {
		out.Skip, out.Detail = SkipUnreadableResult, err
		return out
	}
	doc := sections.ParseDocument(string(content))
	for _, d := range doc.Diagnostics {
		logging.SectionsDebug("%s: %s", resultPath, d)
	}

	out.Record = &Record{
		SourceFilePath: loc.SourceFilePath,
		Location:       loc,
		Metadata:       meta,
		Result:         doc.Fields(),
	}
	return out
}

// DecodePath recovers a location from the segments of path. The first
// segment equal to anchor is followed by model and app name; the first
// numeric segment after those is the timestamp, the segment before it the
// batch mode, and everything between app name and batch mode the source
// file path. A source directory whose name is numeric ends the scan early.
func DecodePath(path, anchor string) (Location, SkipReason) {
	segments := strings.Split(filepath.ToSlash(path), "/")

	a := -1
	for i, s := range segments {
		if s == anchor {
			a = i
			break
		}
	}
	if a < 0 {
		return Location{}, SkipMissingAnchor
	}
	if a+2 >= len(segments) {
		return Location{}, SkipIndexOutOfRange
	}

	ts := -1
	for i := a + 3; i < len(segments); i++ {
		if IsDecimal(segments[i]) {
			ts = i
			break
		}
	}
	if ts < 0 {
		return Location{}, SkipMissingTimestamp
	}
	batch := ts - 1
	if batch <= a+3 {
		return Location{}, SkipEmptySourcePath
	}

	return Location{
		Model:          segments[a+1],
		AppName:        segments[a+2],
		SourceFilePath: filepath.Join(segments[a+3 : batch]...),
		BatchMode:      segments[batch],
		Timestamp:      segments[ts],
		DecodedBy:      DecodedPositional,
	}, ""
}

// IsDecimal reports whether s is a plain decimal number ("17", "1718.5",
// "1e9"). NaN, Inf and hex forms are not.
func IsDecimal(s string) bool {
	return decimalPattern.MatchString(s)
}

// Collect drains a walk into records and a summary.
func Collect(seq iter.Seq[Outcome]) ([]Record, Summary) {
	var records []Record
	sum := Summary{Skipped: make(map[SkipReason]int)}
	for o := range seq {
		sum.Leaves++
		if o.Accepted() {
			records = append(records, *o.Record)
			sum.Records++
			logging.WalkDebug("resolved %s -> %s", o.ResultPath, o.Record.SourceFilePath)
			continue
		}
		sum.Skipped[o.Skip]++
		if o.Detail != nil {
			logging.WalkDebug("skipped %s (%s): %v", o.ResultPath, o.Skip, o.Detail)
		} else {
			logging.WalkDebug("skipped %s (%s)", o.ResultPath, o.Skip)
		}
	}
	logging.Walk("resolved %d of %d leaves", sum.Records, sum.Leaves)
	return records, sum
}

// Manifest is the per-attempt identity file that replaces positional
// decoding when present.
type Manifest struct {
	Model          string `yaml:"model"`
	AppName        string `yaml:"app_name"`
	SourceFilePath string `yaml:"source_file_path"`
	BatchMode      string `yaml:"batch_mode"`
	Timestamp      string `yaml:"timestamp"`
}

// WriteManifest stores m next to a result file.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readManifest(path string) (Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Location{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Location{}, fmt.Errorf("parse manifest: %w", err)
	}
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"model", m.Model},
		{"app_name", m.AppName},
		{"source_file_path", m.SourceFilePath},
		{"batch_mode", m.BatchMode},
		{"timestamp", m.Timestamp},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Location{}, fmt.Errorf("manifest missing %s", strings.Join(missing, ", "))
	}
	return Location{
		Model:          m.Model,
		AppName:        m.AppName,
		SourceFilePath: filepath.FromSlash(m.SourceFilePath),
		BatchMode:      m.BatchMode,
		Timestamp:      m.Timestamp,
		DecodedBy:      DecodedManifest,
	}, nil
}

func readPromptVars(path string) (PromptVars, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptVars{}, err
	}
	var pv PromptVars
	if err := yaml.Unmarshal(data, &pv); err != nil {
		return PromptVars{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return pv, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WalkDebug("stat %s: %v", path, err)
		}
		return false
	}
	return !info.IsDir()
}
