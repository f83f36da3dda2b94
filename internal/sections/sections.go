// Package sections decodes the sectioned text written by the migration
// assistant into keyed fields.
//
// The document grammar has two levels. The outer level is a sequence of
// sections, each opened by a line starting with "## " and running until the
// next such line. The inner level is a fenced code payload (```lang ... ```)
// that the updated_file section carries instead of prose. Heading lines inside
// an open fence do not start a new section.
package sections

import (
	"fmt"
	"regexp"
	"strings"
)

// Well-known section keys.
const (
	ReasoningKey   = "reasoning"
	UpdatedFileKey = "updated_file"
)

var (
	headingPattern = regexp.MustCompile(`^##[ \t]+(.*)$`)
	payloadPattern = regexp.MustCompile("(?s)```[\\w+.#-]*\\n(.*?)\\n```")
)

// Fields maps a normalized section key to its body.
type Fields map[string]string

// Section is a single heading and the text under it.
type Section struct {
	Title string
	Key   string
	Body  string
	Line  int // 1-based line of the heading
}

// Diagnostic reports a position in the input the parser could not fully
// honor. Parsing always continues past a diagnostic.
type Diagnostic struct {
	Line int
	Msg  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Msg)
}

// Document is the parsed form of a sectioned text file.
type Document struct {
	Sections    []Section
	Diagnostics []Diagnostic
}

// Fields flattens the document into a key/body map. When a key repeats, the
// last section wins.
func (d *Document) Fields() Fields {
	out := make(Fields, len(d.Sections))
	for _, s := range d.Sections {
		out[s.Key] = s.Body
	}
	return out
}

// Parse is the lenient entry point: it returns the fields and drops
// diagnostics.
func Parse(content string) Fields {
	return ParseDocument(content).Fields()
}

// NormalizeKey turns a heading title into a field key ("Updated File" ->
// "updated_file").
func NormalizeKey(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "_")
}

// ParseDocument splits content into sections and extracts the fenced payload
// of the updated_file section.
func ParseDocument(content string) *Document {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	doc := &Document{}

	heads, openFence := headingLines(lines, true)
	if openFence > 0 {
		doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
			Line: openFence,
			Msg:  "fenced block is never closed; headings inside it split sections",
		})
		heads, _ = headingLines(lines, false)
	}

	first := len(lines)
	if len(heads) > 0 {
		first = heads[0]
	}
	if strings.TrimSpace(strings.Join(lines[:first], "\n")) != "" {
		doc.Diagnostics = append(doc.Diagnostics, Diagnostic{Line: 1, Msg: "text before the first heading is ignored"})
	}

	for i, h := range heads {
		end := len(lines)
		if i+1 < len(heads) {
			end = heads[i+1]
		}
		title := strings.TrimSpace(headingPattern.FindStringSubmatch(lines[h])[1])
		if title == "" {
			doc.Diagnostics = append(doc.Diagnostics, Diagnostic{Line: h + 1, Msg: "heading has no title"})
			continue
		}
		section := Section{
			Title: title,
			Key:   NormalizeKey(title),
			Body:  strings.TrimSpace(strings.Join(lines[h+1:end], "\n")),
			Line:  h + 1,
		}
		if section.Key == UpdatedFileKey {
			if payload, ok := fencedPayload(section.Body); ok {
				section.Body = payload
			} else if strings.Contains(section.Body, "```") {
				doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
					Line: h + 1,
					Msg:  "updated_file has an unterminated fenced block; keeping raw body",
				})
			}
		}
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}

// headingLines returns the 0-based indexes of heading lines. With fenceAware
// set, lines inside ``` fences are skipped; if a fence is still open at the
// end, its 1-based opening line is returned as well.
func headingLines(lines []string, fenceAware bool) ([]int, int) {
	var heads []int
	inFence := false
	fenceStart := 0
	for i, line := range lines {
		if fenceAware && strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inFence {
				fenceStart = i + 1
			}
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if headingPattern.MatchString(line) {
			heads = append(heads, i)
		}
	}
	if inFence {
		return heads, fenceStart
	}
	return heads, 0
}

func fencedPayload(body string) (string, bool) {
	m := payloadPattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
