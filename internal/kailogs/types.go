package kailogs

import (
	"kaieval/internal/incidents"
	"kaieval/internal/sections"
)

// PromptVars is the sidecar metadata written next to each batch of attempts.
// Keys other than the named ones are preserved in Extra.
type PromptVars struct {
	Language     string               `yaml:"src_file_language"`
	FileName     string               `yaml:"src_file_name"`
	FileContents string               `yaml:"src_file_contents"`
	Incidents    []incidents.Incident `yaml:"incidents"`
	Extra        map[string]any       `yaml:",inline"`
}

// Decoder names how a record's identity was recovered.
type Decoder string

const (
	DecodedPositional Decoder = "positional"
	DecodedManifest   Decoder = "manifest"
)

// Location is the identity of one attempt.
type Location struct {
	Model          string  `yaml:"model"`
	AppName        string  `yaml:"app_name"`
	SourceFilePath string  `yaml:"source_file_path"`
	BatchMode      string  `yaml:"batch_mode"`
	Timestamp      string  `yaml:"timestamp"`
	ResultPath     string  `yaml:"result_path"`
	MetadataPath   string  `yaml:"metadata_path"`
	DecodedBy      Decoder `yaml:"decoded_by"`
}

// Record unifies one attempt's result file with its sidecar metadata.
type Record struct {
	SourceFilePath string          `yaml:"src_file_path"`
	Location       Location        `yaml:"location"`
	Metadata       PromptVars      `yaml:"prompt_vars"`
	Result         sections.Fields `yaml:"llm_results"`
}

// SkipReason tags a leaf that produced no record.
type SkipReason string

const (
	SkipMissingMetadata    SkipReason = "missing_metadata"
	SkipMissingAnchor      SkipReason = "missing_anchor"
	SkipMissingTimestamp   SkipReason = "missing_timestamp"
	SkipEmptySourcePath    SkipReason = "empty_source_path"
	SkipIndexOutOfRange    SkipReason = "index_out_of_range"
	SkipUnreadableMetadata SkipReason = "unreadable_metadata"
	SkipUnreadableResult   SkipReason = "unreadable_result"
	SkipMalformedManifest  SkipReason = "malformed_manifest"
)

// Outcome is the result of resolving one leaf: a record, or a skip reason
// with optional detail.
type Outcome struct {
	ResultPath string
	Record     *Record
	Skip       SkipReason
	Detail     error
}

// Accepted reports whether the outcome carries a record.
func (o Outcome) Accepted() bool { return o.Record != nil }

// Summary aggregates outcomes.
type Summary struct {
	Leaves  int
	Records int
	Skipped map[SkipReason]int
}
