// Package judge scores migration fixes with an LLM acting as a reviewer and
// turns the reviewer's free-form reply into a typed report card.
package judge

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingBlock means the reply contains no fenced block at all.
	ErrMissingBlock = errors.New("no fenced structured block found")
	// ErrMalformedBlock means the fenced block is not a YAML/JSON mapping.
	ErrMalformedBlock = errors.New("malformed structured content")
	// ErrIncompleteReportCard means one or more report card fields are absent.
	ErrIncompleteReportCard = errors.New("incomplete report card")
	// ErrInvalidReportCard means a field has the wrong type or a score is
	// outside [0,10].
	ErrInvalidReportCard = errors.New("invalid report card")
)

const maxScore = 10

var blockPattern = regexp.MustCompile("(?s)```(?i:yaml|yml|json)?[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")

// ReportCard is the reviewer's verdict on one fixed file.
type ReportCard struct {
	Filename           string `yaml:"filename"`
	Effectiveness      int    `yaml:"effectiveness"`
	Specificity        int    `yaml:"specificity"`
	Reasoning          int    `yaml:"reasoning"`
	Competency         int    `yaml:"competency"`
	ValidCode          bool   `yaml:"valid_code"`
	UnnecessaryChanges bool   `yaml:"unnecessary_changes"`
	DetailedNotes      string `yaml:"detailed_notes"`
}

// ScoreSummary is the mean of the four numeric scores.
func (c ReportCard) ScoreSummary() float64 {
	return float64(c.Effectiveness+c.Specificity+c.Reasoning+c.Competency) / 4.0
}

var (
	scoreFields = []string{"effectiveness", "specificity", "reasoning", "competency"}
	boolFields  = []string{"valid_code", "unnecessary_changes"}
	required    = []string{"effectiveness", "specificity", "reasoning", "competency", "valid_code", "unnecessary_changes", "detailed_notes"}
)

// Extract finds the first fenced block in text and decodes it as a report
// card. Every field except filename must be present; nothing is defaulted.
func Extract(text string) (*ReportCard, error) {
	m := blockPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrMissingBlock
	}

	// The closing fence consumes the block's final line break; restore it so
	// literal scalars keep their trailing newline.
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(m[1]+"\n"), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBlock, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: block is not a mapping", ErrMalformedBlock)
	}
	fields := make(map[string]*yaml.Node)
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		fields[root.Content[i].Value] = root.Content[i+1]
	}

	var missing []string
	for _, name := range required {
		if n, ok := fields[name]; !ok || n.ShortTag() == "!!null" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteReportCard, strings.Join(missing, ", "))
	}

	card := &ReportCard{}
	scores := []*int{&card.Effectiveness, &card.Specificity, &card.Reasoning, &card.Competency}
	for i, name := range scoreFields {
		v, err := decodeScore(fields[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidReportCard, name, err)
		}
		*scores[i] = v
	}
	flags := []*bool{&card.ValidCode, &card.UnnecessaryChanges}
	for i, name := range boolFields {
		n := fields[name]
		if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
			return nil, fmt.Errorf("%w: %s: expected boolean, got %q", ErrInvalidReportCard, name, n.Value)
		}
		if err := n.Decode(flags[i]); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidReportCard, name, err)
		}
	}
	notes := fields["detailed_notes"]
	if notes.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("%w: detailed_notes: expected text", ErrInvalidReportCard)
	}
	card.DetailedNotes = notes.Value
	if n, ok := fields["filename"]; ok && n.Kind == yaml.ScalarNode && n.ShortTag() != "!!null" {
		card.Filename = n.Value
	}
	return card, nil
}

// decodeScore accepts integers and integral floats ("7", "7.0") in [0,10].
func decodeScore(n *yaml.Node) (int, error) {
	if n.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("expected number")
	}
	var v int
	switch n.ShortTag() {
	case "!!int":
		if err := n.Decode(&v); err != nil {
			return 0, err
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return 0, err
		}
		if math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, fmt.Errorf("score %v is not a whole number", f)
		}
		v = int(f)
	default:
		return 0, fmt.Errorf("expected number, got %q", n.Value)
	}
	if v < 0 || v > maxScore {
		return 0, fmt.Errorf("score %d outside 0..%d", v, maxScore)
	}
	return v, nil
}
