package judge

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"kaieval/internal/diff"
	"kaieval/internal/incidents"
)

// PromptVars is everything the reviewer needs to know about one fix.
type PromptVars struct {
	Model         string
	Language      string
	Source        string
	Target        string
	Filename      string
	UnchangedFile string
	Incidents     []incidents.Incident
}

const systemTemplate = `You are a senior engineer reviewing the migration of a large enterprise {{.Language}} project from {{.Source}} to {{.Target}}.
Konveyor static analysis flagged the places in the code that block the migration, and an assistant running the model "{{.Model}}" was asked to fix them one file at a time.

Review the assistant's change and grade it:

1. specificity: how closely the change addresses the incidents Konveyor reported.
2. competency: how well the change follows {{.Language}} and {{.Target}} practice.
3. effectiveness: how far the change gets the file from {{.Source}} to {{.Target}}.
4. reasoning: how well the assistant explained what it changed and why.

Also decide whether the changed file is still valid code that compiles (valid_code) and whether the assistant made changes that do not serve the migration (unnecessary_changes).
The assistant may be wrong about its own work. Compare the original file with the diff before trusting its explanation; if it claims to have removed something, confirm it was there.

Answer with a YAML report card inside a single fenced block. Scores are integers from 0 to 10, valid_code and unnecessary_changes are booleans, detailed_notes is a multi-line string. Every field below is required:

` + "```yaml" + `
filename: {{.Filename}}
effectiveness: 7
specificity: 7
reasoning: 7
competency: 7
valid_code: true
unnecessary_changes: false
detailed_notes: |
  Notes on the change go here.
` + "```" + `
`

const userTemplate = `# File Migration Report

Model: {{.Vars.Model}}
Filename: {{.Vars.Filename}}

## Konveyor Incidents
{{range .Vars.Incidents}}
- {{with .LineNumber}}line {{.}}: {{end}}{{.Message}}{{with .URI}} ({{.}}){{end}}
{{- else}}
(none reported)
{{- end}}

## Original File

` + "```{{.Fence}}" + `
{{.Vars.UnchangedFile}}
` + "```" + `

## Reasoning

{{.Rationale}}

## File Diff

` + "```diff" + `
{{.Diff}}` + "```" + `
`

var (
	systemPrompt = template.Must(template.New("system").Parse(systemTemplate))
	userPrompt   = template.Must(template.New("user").Parse(userTemplate))
)

// RenderSystem renders the reviewer instructions.
func RenderSystem(pv PromptVars) (string, error) {
	var buf bytes.Buffer
	if err := systemPrompt.Execute(&buf, pv); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}

// RenderUser renders the fix under review: incidents, the original file, the
// assistant's explanation and a unified diff of original against updated.
func RenderUser(pv PromptVars, rationale, updatedFile string) (string, error) {
	d := diff.Unified(pv.Filename, pv.Filename, withNewline(pv.UnchangedFile), withNewline(updatedFile))
	if d == "" {
		d = "(no changes)\n"
	}
	data := struct {
		Vars      PromptVars
		Fence     string
		Rationale string
		Diff      string
	}{
		Vars:      pv,
		Fence:     strings.ToLower(pv.Language),
		Rationale: strings.TrimSpace(rationale),
		Diff:      d,
	}
	var buf bytes.Buffer
	if err := userPrompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render user prompt: %w", err)
	}
	return buf.String(), nil
}

// withNewline makes the last line of the original and the extracted payload
// compare equal when only the trailing newline differs.
func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
