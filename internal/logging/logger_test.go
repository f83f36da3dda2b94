package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readCategoryLog(t *testing.T, workspace string, category Category) string {
	t.Helper()
	date := time.Now().Format("2006-01-02")
	path := filepath.Join(LogsDir(workspace), date+"_"+string(category)+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestInitialize_DebugModeWritesCategoryFiles(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Walk("walked %d leaves", 3)
	JudgeDebug("prompt for %s", "Foo.java")

	if got := readCategoryLog(t, ws, CategoryWalk); !strings.Contains(got, "[INFO] walked 3 leaves") {
		t.Errorf("walk log missing entry, got: %s", got)
	}
	if got := readCategoryLog(t, ws, CategoryJudge); !strings.Contains(got, "[DEBUG] prompt for Foo.java") {
		t.Errorf("judge log missing entry, got: %s", got)
	}
	if got := readCategoryLog(t, ws, CategoryBoot); !strings.Contains(got, "logging initialized") {
		t.Errorf("boot log missing banner, got: %s", got)
	}
}

func TestInitialize_ProductionModeIsNoop(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Settings{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Walk("nothing should be written")

	if _, err := os.Stat(LogsDir(ws)); !os.IsNotExist(err) {
		t.Fatalf("expected no logs directory in production mode, stat err = %v", err)
	}
}

func TestInitialize_RequiresWorkspace(t *testing.T) {
	if err := Initialize("", Settings{}); err == nil {
		t.Fatal("expected error for empty workspace")
	}
}

func TestCategoryFilter(t *testing.T) {
	ws := t.TempDir()
	err := Initialize(ws, Settings{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"vcs": false},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryVCS) {
		t.Error("vcs should be disabled")
	}
	if !IsCategoryEnabled(CategoryJudge) {
		t.Error("unlisted categories should default to enabled")
	}
}

func TestLevelFiltering(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Settings{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	l := Get(CategoryReport)
	l.Info("hidden")
	l.Warn("shown")

	got := readCategoryLog(t, ws, CategoryReport)
	if strings.Contains(got, "hidden") {
		t.Errorf("info entry should be filtered at warn level: %s", got)
	}
	if !strings.Contains(got, "[WARN] shown") {
		t.Errorf("warn entry missing: %s", got)
	}
}

func TestJSONFormat(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Settings{DebugMode: true, Level: "info", JSONFormat: true}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	Get(CategoryIncidents).StructuredLog("info", "indexed", map[string]interface{}{"files": 2})

	lines := strings.Split(strings.TrimSpace(readCategoryLog(t, ws, CategoryIncidents)), "\n")
	last := lines[len(lines)-1]
	start := strings.Index(last, "{")
	if start < 0 {
		t.Fatalf("no JSON payload in %q", last)
	}
	var entry StructuredLogEntry
	if err := json.Unmarshal([]byte(last[start:]), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Category != "incidents" || entry.Message != "indexed" || entry.Fields["files"] != float64(2) {
		t.Errorf("unexpected entry: %+v", entry)
	}
}
