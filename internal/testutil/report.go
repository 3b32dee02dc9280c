//go:build e2e

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type testEntry struct {
	name     string
	ifname   string
	comment  string
	status   string
	duration time.Duration
	start    time.Time
	order    int
}

type report struct {
	mu      sync.Mutex
	entries map[string]*testEntry
	seq     int
	start   time.Time
}

var globalReport *report

// InitReport creates the global report instance. Call from TestMain before m.Run().
func InitReport() {
	globalReport = &report{
		entries: make(map[string]*testEntry),
		start:   time.Now(),
	}
}

// Track registers a test in the report and captures its outcome when it ends.
func Track(t *testing.T, ifname string) {
	if globalReport == nil {
		return
	}
	t.Helper()

	globalReport.mu.Lock()
	defer globalReport.mu.Unlock()

	if _, exists := globalReport.entries[t.Name()]; exists {
		return
	}
	globalReport.seq++
	entry := &testEntry{
		name:   t.Name(),
		ifname: ifname,
		start:  time.Now(),
		order:  globalReport.seq,
	}
	globalReport.entries[t.Name()] = entry

	t.Cleanup(func() {
		globalReport.mu.Lock()
		defer globalReport.mu.Unlock()

		entry.duration = time.Since(entry.start)
		switch {
		case t.Failed():
			entry.status = "FAIL"
		case t.Skipped():
			entry.status = "SKIP"
		default:
			entry.status = "PASS"
		}
	})
}

// TrackComment attaches a comment to the current test's report entry.
// Call before t.Skip or t.Fatal to capture the reason in the report.
func TrackComment(t *testing.T, msg string) {
	if globalReport == nil {
		return
	}
	t.Helper()

	globalReport.mu.Lock()
	defer globalReport.mu.Unlock()

	if entry, ok := globalReport.entries[t.Name()]; ok {
		if entry.comment != "" {
			entry.comment += "; "
		}
		entry.comment += msg
	}
}

// WriteReport writes the markdown report to path.
func WriteReport(path string) error {
	if globalReport == nil {
		return nil
	}

	globalReport.mu.Lock()
	defer globalReport.mu.Unlock()

	rows := make([]*testEntry, 0, len(globalReport.entries))
	for _, e := range globalReport.entries {
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].order < rows[j].order })

	counts := map[string]int{}
	for _, e := range rows {
		counts[e.status]++
	}

	var sb strings.Builder
	sb.WriteString("# queuecheck E2E Test Report\n\n")
	fmt.Fprintf(&sb, "Date: %s, duration %s, %d passed, %d failed, %d skipped\n\n",
		globalReport.start.UTC().Format("2006-01-02 15:04:05 UTC"),
		time.Since(globalReport.start).Round(time.Millisecond),
		counts["PASS"], counts["FAIL"], counts["SKIP"])
	sb.WriteString("| # | Test | Status | Duration | Interface | Comments |\n")
	sb.WriteString("|---|------|--------|----------|-----------|----------|\n")
	for i, e := range rows {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s |\n",
			i+1, e.name, e.status, e.duration.Round(time.Millisecond), e.ifname,
			strings.ReplaceAll(e.comment, "|", "\\|"))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
