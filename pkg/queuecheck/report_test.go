package queuecheck

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *RunResult {
	return &RunResult{
		Interface: "eth0",
		Ifindex:   2,
		Started:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  3 * time.Second,
		Checks: []*CheckResult{
			{Name: "check_static_consistency", Status: StatusFailed, Message: "rx queues: 4 != 5", Duration: 20 * time.Millisecond},
			{Name: "check_reconfigure_roundtrip", Status: StatusFailed, Message: "restoring 8 rx queues: exit status 1", RestoreFailed: true, CleanupError: "set link up: device busy"},
			{Name: "check_down_error_behavior", Status: StatusSkipped, Message: "disruptive checks disabled"},
		},
	}
}

func TestRunResultStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		release  string
		want     Status
	}{
		{"all pass", []Status{StatusPassed, StatusPassed}, "", StatusPassed},
		{"skips only", []Status{StatusSkipped, StatusSkipped}, "", StatusPassed},
		{"error", []Status{StatusPassed, StatusError}, "", StatusError},
		{"failure beats error", []Status{StatusError, StatusFailed}, "", StatusFailed},
		{"release error", []Status{StatusPassed}, "close: bad fd", StatusFailed},
		{"release error beats check error", []Status{StatusError}, "close: bad fd", StatusFailed},
		{"empty", nil, "", StatusPassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &RunResult{ReleaseError: tt.release}
			for _, s := range tt.statuses {
				r.Checks = append(r.Checks, &CheckResult{Status: s})
			}
			assert.Equal(t, tt.want, r.Status())
		})
	}
}

func TestRunResultCounts(t *testing.T) {
	counts := sampleRun().Counts()
	assert.Equal(t, 2, counts[StatusFailed])
	assert.Equal(t, 1, counts[StatusSkipped])
	assert.Zero(t, counts[StatusPassed])
}

func TestWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "queuecheck.md")
	run := sampleRun()
	run.ReleaseError = "close netdev socket: bad file descriptor"

	require.NoError(t, (&ReportGenerator{Results: []*RunResult{run}}).WriteMarkdown(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "# queuecheck Report - ")
	assert.Contains(t, out, "| eth0 | check_static_consistency | FAIL | 20ms |  |")
	assert.Contains(t, out, "| eth0 | check_down_error_behavior | SKIP | 0s | disruptive checks disabled |")
	assert.Contains(t, out, "device state not restored")
	assert.Contains(t, out, "## Failures")
	assert.Contains(t, out, "### check_static_consistency on eth0\nrx queues: 4 != 5")
	assert.Contains(t, out, "cleanup: set link up: device busy")
	assert.Contains(t, out, "### release of eth0\nclose netdev socket: bad file descriptor")
}

func TestWriteMarkdownNoFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.md")
	run := &RunResult{
		Interface: "eth1",
		Checks:    []*CheckResult{{Name: "check_static_consistency", Status: StatusPassed}},
	}

	require.NoError(t, (&ReportGenerator{Results: []*RunResult{run}}).WriteMarkdown(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "## Failures")
}

func TestWriteJUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junit.xml")
	run := sampleRun()
	run.Checks = append(run.Checks, &CheckResult{Name: "extra", Status: StatusError, Message: "netdev queue-get: no such device (-19)"})

	require.NoError(t, (&ReportGenerator{Results: []*RunResult{run}}).WriteJUnit(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got junitTestSuites
	require.NoError(t, xml.Unmarshal(data, &got))
	require.Len(t, got.Suites, 1)

	s := got.Suites[0]
	assert.Equal(t, "queuecheck.eth0", s.Name)
	assert.Equal(t, 4, s.Tests)
	assert.Equal(t, 2, s.Failures)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Errors)
	require.Len(t, s.Cases, 4)

	require.NotNil(t, s.Cases[0].Failure)
	assert.Equal(t, "assertion", s.Cases[0].Failure.Type)
	require.NotNil(t, s.Cases[1].Failure)
	assert.Equal(t, "restore", s.Cases[1].Failure.Type)
	require.NotNil(t, s.Cases[2].Skipped)
	assert.Equal(t, "disruptive checks disabled", s.Cases[2].Skipped.Message)
	require.NotNil(t, s.Cases[3].Error)
	assert.Equal(t, "infra", s.Cases[3].Error.Type)
}
