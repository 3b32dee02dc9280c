package queuecheck

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/newtron-network/queuecheck/pkg/cli"
)

// ProgressReporter receives lifecycle callbacks during a run.
type ProgressReporter interface {
	RunStart(ifname string, checks []*Check)
	CheckStart(check *Check, index, total int)
	CheckEnd(result *CheckResult, index, total int)
	RunEnd(result *RunResult)
}

// ConsoleProgress is an append-only terminal progress reporter. It never
// rewrites lines, so output is safe for pipes and CI logs.
type ConsoleProgress struct {
	W       io.Writer
	Verbose bool

	dotWidth int
}

// NewConsoleProgress creates a ConsoleProgress writing to stdout.
func NewConsoleProgress(verbose bool) *ConsoleProgress {
	return &ConsoleProgress{
		W:       os.Stdout,
		Verbose: verbose,
	}
}

func (p *ConsoleProgress) RunStart(ifname string, checks []*Check) {
	maxName := 0
	for _, c := range checks {
		if len(c.Name) > maxName {
			maxName = len(c.Name)
		}
	}
	p.dotWidth = maxName + 6

	fmt.Fprintf(p.W, "\nqueuecheck: %d checks, interface: %s\n\n", len(checks), ifname)
}

func (p *ConsoleProgress) CheckStart(check *Check, index, total int) {
	if p.Verbose {
		fmt.Fprintf(p.W, "  [%d/%d]  %s: %s\n", index+1, total, check.Name, cli.Dim(check.Description))
	}
}

func (p *ConsoleProgress) CheckEnd(result *CheckResult, index, total int) {
	tag := fmt.Sprintf("[%d/%d]", index+1, total)
	padded := cli.DotPad(result.Name, p.dotWidth)

	switch result.Status {
	case StatusSkipped:
		fmt.Fprintf(p.W, "  %-7s %s %s\n", tag, padded, cli.Yellow("SKIP"))
	default:
		fmt.Fprintf(p.W, "  %-7s %s %s  (%s)\n", tag, padded, p.colorStatus(result.Status), formatDuration(result.Duration))
	}

	if p.Verbose && result.Message != "" && result.Status != StatusPassed {
		fmt.Fprintf(p.W, "          %s\n", cli.Dim(result.Message))
	}
}

func (p *ConsoleProgress) RunEnd(res *RunResult) {
	counts := res.Counts()

	fmt.Fprintf(p.W, "\n---\n")
	fmt.Fprintf(p.W, "queuecheck: %d checks", len(res.Checks))

	parts := []string{}
	if n := counts[StatusPassed]; n > 0 {
		parts = append(parts, cli.Green(fmt.Sprintf("%d passed", n)))
	}
	if n := counts[StatusFailed]; n > 0 {
		parts = append(parts, cli.Red(fmt.Sprintf("%d failed", n)))
	}
	if n := counts[StatusError]; n > 0 {
		parts = append(parts, cli.Red(fmt.Sprintf("%d errored", n)))
	}
	if n := counts[StatusSkipped]; n > 0 {
		parts = append(parts, cli.Yellow(fmt.Sprintf("%d skipped", n)))
	}
	if len(parts) > 0 {
		fmt.Fprintf(p.W, ": %s", strings.Join(parts, ", "))
	}
	fmt.Fprintf(p.W, "  (%s)\n", formatDuration(res.Duration))

	if counts[StatusFailed]+counts[StatusError] > 0 {
		fmt.Fprintf(p.W, "\n  FAILED:\n")
		for i, c := range res.Checks {
			if c.Status != StatusFailed && c.Status != StatusError {
				continue
			}
			fmt.Fprintf(p.W, "    [%d]  %s: %s\n", i+1, c.Name, c.Message)
			if c.RestoreFailed {
				fmt.Fprintf(p.W, "         %s\n", cli.Red("device state was not restored"))
			}
		}
	}

	if counts[StatusSkipped] > 0 {
		fmt.Fprintf(p.W, "\n  SKIPPED:\n")
		for i, c := range res.Checks {
			if c.Status != StatusSkipped {
				continue
			}
			fmt.Fprintf(p.W, "    [%d]  %s %s\n", i+1, cli.DotPad(c.Name, p.dotWidth), c.Message)
		}
	}

	if res.ReleaseError != "" {
		fmt.Fprintf(p.W, "\n  RELEASE: %s\n", cli.Red(res.ReleaseError))
	}

	fmt.Fprintln(p.W)
}

func (p *ConsoleProgress) colorStatus(s Status) string {
	switch s {
	case StatusPassed:
		return cli.Green(string(s))
	case StatusFailed, StatusError:
		return cli.Red(string(s))
	case StatusSkipped:
		return cli.Yellow(string(s))
	default:
		return string(s)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(100 * time.Millisecond)
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%02ds", m, s)
}

// MultiReporter fans callbacks out to several reporters.
type MultiReporter []ProgressReporter

func (m MultiReporter) RunStart(ifname string, checks []*Check) {
	for _, r := range m {
		r.RunStart(ifname, checks)
	}
}

func (m MultiReporter) CheckStart(check *Check, index, total int) {
	for _, r := range m {
		r.CheckStart(check, index, total)
	}
}

func (m MultiReporter) CheckEnd(result *CheckResult, index, total int) {
	for _, r := range m {
		r.CheckEnd(result, index, total)
	}
}

func (m MultiReporter) RunEnd(result *RunResult) {
	for _, r := range m {
		r.RunEnd(result)
	}
}
