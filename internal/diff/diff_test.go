package diff

import (
	"fmt"
	"strings"
	"testing"
)

func numbered(n int, change map[int]string) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := change[i]; ok {
			sb.WriteString(s)
		} else {
			fmt.Fprintf(&sb, "line%d", i)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestUnified_SingleChange(t *testing.T) {
	got := Unified("Foo.java", "Foo.java", "a\nb\nc\n", "a\nB\nc\n")
	want := "--- a/Foo.java\n+++ b/Foo.java\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n"
	if got != want {
		t.Fatalf("Unified mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestUnified_NoChanges(t *testing.T) {
	if got := Unified("a", "a", "same\n", "same\n"); got != "" {
		t.Fatalf("expected empty diff, got %q", got)
	}
}

func TestComputeDiff_NewFile(t *testing.T) {
	d := ComputeDiff("", "New.java", "", "x\ny\n")
	if !d.IsNew || d.IsDelete {
		t.Fatalf("flags: IsNew=%v IsDelete=%v", d.IsNew, d.IsDelete)
	}
	if len(d.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(d.Hunks))
	}
	h := d.Hunks[0]
	if h.OldStart != 0 || h.OldCount != 0 || h.NewStart != 1 || h.NewCount != 2 {
		t.Errorf("unexpected header: -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}
}

func TestComputeDiff_DeletedFile(t *testing.T) {
	d := ComputeDiff("Old.java", "", "x\ny\n", "")
	if !d.IsDelete {
		t.Fatal("expected IsDelete")
	}
	h := d.Hunks[0]
	if h.OldStart != 1 || h.OldCount != 2 || h.NewStart != 0 || h.NewCount != 0 {
		t.Errorf("unexpected header: -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}
}

func TestComputeDiff_SimpleAddition(t *testing.T) {
	d := ComputeDiff("f", "f", "line1\nline2\nline3", "line1\nline2\nline2.5\nline3")
	if len(d.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(d.Hunks))
	}
	found := false
	for _, l := range d.Hunks[0].Lines {
		if l.Type == LineAdded && l.Content == "line2.5" {
			found = true
		}
	}
	if !found {
		t.Error("Expected to find added line 'line2.5'")
	}
}

func TestComputeDiff_SeparateHunks(t *testing.T) {
	oldContent := numbered(20, nil)
	newContent := numbered(20, map[int]string{2: "changed2", 18: "changed18"})

	d := ComputeDiff("f", "f", oldContent, newContent)
	if len(d.Hunks) != 2 {
		t.Fatalf("Expected 2 hunks, got %d", len(d.Hunks))
	}
	first, second := d.Hunks[0], d.Hunks[1]
	if first.OldStart != 1 || first.OldCount != 5 || first.NewCount != 5 {
		t.Errorf("first hunk: -%d,%d +%d,%d", first.OldStart, first.OldCount, first.NewStart, first.NewCount)
	}
	if second.OldStart != 15 || second.OldCount != 6 || second.NewStart != 15 || second.NewCount != 6 {
		t.Errorf("second hunk: -%d,%d +%d,%d", second.OldStart, second.OldCount, second.NewStart, second.NewCount)
	}

	want := "--- a/f\n+++ b/f\n" +
		"@@ -1,5 +1,5 @@\n line1\n-line2\n+changed2\n line3\n line4\n line5\n" +
		"@@ -15,6 +15,6 @@\n line15\n line16\n line17\n-line18\n+changed18\n line19\n line20\n"
	if got := d.String(); got != want {
		t.Errorf("Unified mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestComputeDiff_RepeatedLines(t *testing.T) {
	oldContent := "}\n}\nx\n}\n"
	newContent := "}\n}\ny\n}\n"
	want := "--- a/f\n+++ b/f\n@@ -1,4 +1,4 @@\n }\n }\n-x\n+y\n }\n"
	if got := Unified("f", "f", oldContent, newContent); got != want {
		t.Fatalf("Unified mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestComputeDiff_MissingFinalNewline(t *testing.T) {
	d := ComputeDiff("f", "f", "a\nb", "a\nb\n")
	if len(d.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(d.Hunks))
	}
	if h := d.Hunks[0]; h.OldCount != 2 || h.NewCount != 2 {
		t.Errorf("hunk: -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}
}

func TestComputeDiff_NearbyChangesMerge(t *testing.T) {
	oldContent := numbered(20, nil)
	newContent := numbered(20, map[int]string{6: "x", 11: "y"})

	d := ComputeDiff("f", "f", oldContent, newContent)
	if len(d.Hunks) != 1 {
		t.Fatalf("Expected 1 merged hunk, got %d", len(d.Hunks))
	}
}

func TestComputeDiff_ZeroContext(t *testing.T) {
	e := NewEngine(0)
	d := e.ComputeDiff("f", "f", "a\nb\nc\n", "a\nB\nc\n")
	if len(d.Hunks) != 1 || len(d.Hunks[0].Lines) != 2 {
		t.Fatalf("expected one hunk with only the changed lines, got %+v", d.Hunks)
	}
	if d.Hunks[0].OldStart != 2 || d.Hunks[0].NewStart != 2 {
		t.Errorf("unexpected starts: %+v", d.Hunks[0])
	}
}

func BenchmarkComputeDiff(b *testing.B) {
	oldContent := numbered(2000, nil)
	newContent := numbered(2000, map[int]string{10: "a", 900: "b", 1999: "c"})
	for i := 0; i < b.N; i++ {
		NewEngine(3).ComputeDiff("f", "f", oldContent, newContent)
	}
}
