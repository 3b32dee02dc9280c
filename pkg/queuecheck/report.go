package queuecheck

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DateTimeFormat is used in report headers.
const DateTimeFormat = "2006-01-02 15:04:05"

// Status is the outcome of a check or a run.
type Status string

const (
	StatusPassed  Status = "PASS"
	StatusFailed  Status = "FAIL"
	StatusSkipped Status = "SKIP"
	StatusError   Status = "ERROR"
)

// CheckResult holds the outcome of one check.
type CheckResult struct {
	Name       string
	Alias      string
	Status     Status
	Duration   time.Duration
	Message    string // failure message or skip reason
	Disruptive bool

	// RestoreFailed is set when the device could not be put back into its
	// original state.
	RestoreFailed bool
	CleanupError  string
}

// RunResult holds the outcome of every check run against one device.
type RunResult struct {
	Interface    string
	Ifindex      uint32
	Started      time.Time
	Duration     time.Duration
	Checks       []*CheckResult
	ReleaseError string
}

// Status aggregates the check results: FAIL if any check failed, else ERROR
// if any errored, else PASS. Skips do not fail a run. A failed release
// fails the run.
func (r *RunResult) Status() Status {
	hasError := false
	for _, c := range r.Checks {
		if c.Status == StatusError {
			hasError = true
		}
		if c.Status == StatusFailed {
			return StatusFailed
		}
	}
	if r.ReleaseError != "" {
		return StatusFailed
	}
	if hasError {
		return StatusError
	}
	return StatusPassed
}

// Counts returns the number of checks per status.
func (r *RunResult) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, c := range r.Checks {
		counts[c.Status]++
	}
	return counts
}

// ReportGenerator writes run reports.
type ReportGenerator struct {
	Results []*RunResult
}

// WriteMarkdown writes a markdown report to path.
func (g *ReportGenerator) WriteMarkdown(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "# queuecheck Report - %s\n\n", time.Now().Format(DateTimeFormat))

	fmt.Fprintln(f, "| Interface | Check | Result | Duration | Note |")
	fmt.Fprintln(f, "|-----------|-------|--------|----------|------|")
	for _, r := range g.Results {
		for _, c := range r.Checks {
			note := ""
			if c.Status == StatusSkipped {
				note = c.Message
			}
			if c.RestoreFailed {
				note = "device state not restored"
			}
			fmt.Fprintf(f, "| %s | %s | %s | %s | %s |\n",
				r.Interface, c.Name, c.Status, c.Duration.Round(time.Millisecond), note)
		}
	}

	hasFailures := false
	for _, r := range g.Results {
		for _, c := range r.Checks {
			if c.Status != StatusFailed && c.Status != StatusError {
				continue
			}
			if !hasFailures {
				fmt.Fprintf(f, "\n## Failures\n\n")
				hasFailures = true
			}
			fmt.Fprintf(f, "### %s on %s\n", c.Name, r.Interface)
			fmt.Fprintf(f, "%s\n\n", c.Message)
			if c.CleanupError != "" && c.CleanupError != c.Message {
				fmt.Fprintf(f, "cleanup: %s\n\n", c.CleanupError)
			}
		}
		if r.ReleaseError != "" {
			if !hasFailures {
				fmt.Fprintf(f, "\n## Failures\n\n")
				hasFailures = true
			}
			fmt.Fprintf(f, "### release of %s\n%s\n\n", r.Interface, r.ReleaseError)
		}
	}

	return nil
}

// WriteJUnit writes a JUnit XML report for CI integration.
func (g *ReportGenerator) WriteJUnit(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	suites := junitTestSuites{}

	for _, r := range g.Results {
		suite := junitTestSuite{
			Name: "queuecheck." + r.Interface,
			Time: r.Duration.Seconds(),
		}

		for _, c := range r.Checks {
			suite.Tests++
			tc := junitTestCase{
				Name:      c.Name,
				ClassName: suite.Name,
				Time:      c.Duration.Seconds(),
			}

			switch c.Status {
			case StatusFailed:
				suite.Failures++
				typ := "assertion"
				if c.RestoreFailed {
					typ = "restore"
				}
				tc.Failure = &junitFailure{Message: c.Message, Type: typ}
			case StatusSkipped:
				suite.Skipped++
				tc.Skipped = &junitSkipped{Message: c.Message}
			case StatusError:
				suite.Errors++
				tc.Error = &junitError{Message: c.Message, Type: "infra"}
			}

			suite.Cases = append(suite.Cases, tc)
		}

		suites.Suites = append(suites.Suites, suite)
	}

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append([]byte(xml.Header), data...), 0o644)
}

// JUnit XML types

type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     float64         `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	Error     *junitError   `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

type junitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}
