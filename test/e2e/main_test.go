//go:build e2e

package e2e_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/newtron-network/queuecheck/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.InitReport()

	code := m.Run()

	reportPath := filepath.Join(testutil.ProjectRoot(), ".generated", "e2e-report.md")
	if err := testutil.WriteReport(reportPath); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to write E2E report: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "E2E report written to %s\n", reportPath)
	}
	os.Exit(code)
}
