package judge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestExtract_RoundTrip(t *testing.T) {
	want := ReportCard{
		Filename:           "src/main/java/Foo.java",
		Effectiveness:      8,
		Specificity:        9,
		Reasoning:          6,
		Competency:         7,
		ValidCode:          true,
		UnnecessaryChanges: false,
		DetailedNotes:      "Swapped javax for jakarta.\nNothing else touched.\n",
	}
	data, err := yaml.Marshal(want)
	require.NoError(t, err)

	reply := "Here is my review.\n\n```yaml\n" + string(data) + "```\n\nLet me know if you need more."
	got, err := Extract(reply)
	require.NoError(t, err)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("report card mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 7.5, got.ScoreSummary(), 1e-9)
}

func TestExtract_UntaggedAndJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"untagged", "```\neffectiveness: 1\nspecificity: 2\nreasoning: 3\ncompetency: 4\nvalid_code: false\nunnecessary_changes: true\ndetailed_notes: meh\n```"},
		{"json", "```json\n{\"effectiveness\": 1, \"specificity\": 2, \"reasoning\": 3, \"competency\": 4, \"valid_code\": false, \"unnecessary_changes\": true, \"detailed_notes\": \"meh\"}\n```"},
		{"document marker", "```yaml\n---\neffectiveness: 1\nspecificity: 2\nreasoning: 3\ncompetency: 4.0\nvalid_code: false\nunnecessary_changes: true\ndetailed_notes: meh\n```"},
		{"crlf", "```yaml\r\neffectiveness: 1\r\nspecificity: 2\r\nreasoning: 3\r\ncompetency: 4\r\nvalid_code: false\r\nunnecessary_changes: true\r\ndetailed_notes: meh\r\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.text)
			require.NoError(t, err)
			assert.Equal(t, ReportCard{Effectiveness: 1, Specificity: 2, Reasoning: 3, Competency: 4, UnnecessaryChanges: true, DetailedNotes: "meh"}, *got)
		})
	}
}

func TestExtract_FirstBlockWins(t *testing.T) {
	text := "```yaml\neffectiveness: 1\nspecificity: 1\nreasoning: 1\ncompetency: 1\nvalid_code: true\nunnecessary_changes: false\ndetailed_notes: first\n```\n" +
		"```yaml\neffectiveness: 9\nspecificity: 9\nreasoning: 9\ncompetency: 9\nvalid_code: true\nunnecessary_changes: false\ndetailed_notes: second\n```\n"
	got, err := Extract(text)
	require.NoError(t, err)
	assert.Equal(t, "first", got.DetailedNotes)
}

func TestExtract_MissingBlock(t *testing.T) {
	_, err := Extract("effectiveness: 7\nspecificity: 7\n")
	assert.ErrorIs(t, err, ErrMissingBlock)
}

func TestExtract_MalformedBlock(t *testing.T) {
	for name, text := range map[string]string{
		"bad yaml":   "```yaml\neffectiveness: [1, 2\n```",
		"sequence":   "```yaml\n- 1\n- 2\n```",
		"plain text": "```\njust words\n```",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(text)
			assert.ErrorIs(t, err, ErrMalformedBlock)
		})
	}
}

func TestExtract_IncompleteReportCard(t *testing.T) {
	_, err := Extract("```yaml\neffectiveness: 7\nspecificity: 7\nreasoning: 7\nvalid_code: true\ndetailed_notes:\n```")
	require.ErrorIs(t, err, ErrIncompleteReportCard)
	assert.ErrorContains(t, err, "competency")
	assert.ErrorContains(t, err, "unnecessary_changes")
	assert.ErrorContains(t, err, "detailed_notes")
	assert.False(t, errors.Is(err, ErrInvalidReportCard))
}

func TestExtract_InvalidReportCard(t *testing.T) {
	base := "effectiveness: %s\nspecificity: 7\nreasoning: 7\ncompetency: 7\nvalid_code: %s\nunnecessary_changes: false\ndetailed_notes: ok\n"
	tests := []struct {
		name, score, valid string
	}{
		{"score too high", "11", "true"},
		{"negative score", "-1", "true"},
		{"fractional score", "6.5", "true"},
		{"score as text", "high", "true"},
		{"quoted score", `"7"`, "true"},
		{"bool as text", "7", "pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "```yaml\n" + fmt.Sprintf(base, tt.score, tt.valid) + "```"
			_, err := Extract(text)
			assert.ErrorIs(t, err, ErrInvalidReportCard)
		})
	}
}

func TestScoreSummary(t *testing.T) {
	c := ReportCard{Effectiveness: 10, Specificity: 9, Reasoning: 8, Competency: 8}
	assert.InDelta(t, 8.75, c.ScoreSummary(), 1e-9)
	assert.Zero(t, ReportCard{}.ScoreSummary())
}
