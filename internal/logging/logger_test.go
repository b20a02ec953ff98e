package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tracekit/internal/config"
)

func readCategoryLog(t *testing.T, dir string, cat Category) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
			content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				t.Fatalf("Failed to read log file for %s: %v", cat, err)
			}
			return string(content)
		}
	}
	return ""
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(config.LoggingConfig{Level: "debug", Dir: dir, DebugMode: true}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer CloseAll()

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryFilter,
		CategoryDivergence,
		CategoryPlot,
		CategoryWatch,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	Filter("Convenience filter log")
	Divergence("Convenience divergence log")
	Plot("Convenience plot log")
	Watch("Convenience watch log")

	CloseAll()

	for _, cat := range categories {
		content := readCategoryLog(t, dir, cat)
		if content == "" {
			t.Errorf("No log content for category: %s", cat)
			continue
		}
		if !strings.Contains(content, "[ERROR] Test error message for "+string(cat)) {
			t.Errorf("missing error line for %s: %s", cat, content)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(config.LoggingConfig{Level: "debug", Dir: dir}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer CloseAll()

	Get(CategoryPlot).Info("should go nowhere")
	Boot("nor this")

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("logs dir should not exist in non-debug mode, stat err=%v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	lc := config.LoggingConfig{
		Level:      "info",
		Dir:        dir,
		DebugMode:  true,
		Categories: map[string]bool{"plot": false},
	}
	if err := Initialize(lc); err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	Plot("hidden")
	Filter("visible")
	CloseAll()

	if got := readCategoryLog(t, dir, CategoryPlot); got != "" {
		t.Errorf("disabled category wrote: %q", got)
	}
	if got := readCategoryLog(t, dir, CategoryFilter); !strings.Contains(got, "visible") {
		t.Errorf("enabled category missing line: %q", got)
	}
}

func TestLevelThreshold(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(config.LoggingConfig{Level: "warn", Dir: dir, DebugMode: true}); err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	l := Get(CategoryDivergence)
	l.Debug("debug-line")
	l.Info("info-line")
	l.Warn("warn-line")
	CloseAll()

	content := readCategoryLog(t, dir, CategoryDivergence)
	if strings.Contains(content, "debug-line") || strings.Contains(content, "info-line") {
		t.Errorf("lines below warn leaked: %s", content)
	}
	if !strings.Contains(content, "warn-line") {
		t.Errorf("warn line missing: %s", content)
	}
}

func TestJSONFormat(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(config.LoggingConfig{Level: "info", Format: "json", Dir: dir, DebugMode: true}); err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	Get(CategoryWatch).StructuredLog("info", "changed", map[string]interface{}{"path": "trace.foc.txt"})
	CloseAll()

	content := strings.TrimSpace(readCategoryLog(t, dir, CategoryWatch))
	lines := strings.Split(content, "\n")
	last := lines[len(lines)-1]
	// log.Logger prefixes date and time before the JSON payload
	idx := strings.Index(last, "{")
	if idx < 0 {
		t.Fatalf("no JSON payload in %q", last)
	}
	var entry StructuredLogEntry
	if err := json.Unmarshal([]byte(last[idx:]), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry.Category != "watch" || entry.Message != "changed" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["path"] != "trace.foc.txt" {
		t.Errorf("missing field: %+v", entry.Fields)
	}
}

func TestConcurrentGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(config.LoggingConfig{Level: "info", Dir: dir, DebugMode: true}); err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	var wg sync.WaitGroup
	seen := make([]*Logger, 16)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = Get(CategoryFilter)
			seen[i].Info("goroutine %d", i)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(seen); i++ {
		if seen[i] != seen[0] {
			t.Fatal("Get returned distinct loggers for the same category")
		}
	}
}

func TestTimer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(config.LoggingConfig{Level: "debug", Dir: dir, DebugMode: true}); err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	timer := StartTimer(CategoryPlot, "render")
	if d := timer.StopWithThreshold(time.Hour); d < 0 {
		t.Errorf("negative duration %v", d)
	}
	slow := StartTimer(CategoryPlot, "parse")
	time.Sleep(2 * time.Millisecond)
	slow.StopWithThreshold(time.Nanosecond)
	CloseAll()

	content := readCategoryLog(t, dir, CategoryPlot)
	if !strings.Contains(content, "render completed in") {
		t.Errorf("missing debug timing line: %s", content)
	}
	if !strings.Contains(content, "[WARN] parse took") {
		t.Errorf("missing threshold warning: %s", content)
	}
}
