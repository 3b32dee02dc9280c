package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/cli"
	"github.com/newtron-network/queuecheck/pkg/util"
	"github.com/newtron-network/queuecheck/pkg/version"
)

var (
	verboseFlag  bool
	logLevelFlag string
	logJSONFlag  bool
	colorFlag    string
)

// Sentinel errors for exit code mapping. RunE handlers return these instead
// of calling os.Exit directly, so deferred cleanup (like fixture release) runs.
var (
	errCheckFailure = errors.New("check failure")
	errInfraError   = errors.New("infrastructure error")
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "queuecheck",
		Short: "Check netdev queue topology against sysfs",
		Long: `Queuecheck verifies that the queue topology reported by the kernel's
netdev netlink family agrees with sysfs, survives an ethtool -L channel
change, and that by-id queue and NAPI queries fail with ENOENT while the
link is down.

  queuecheck list                          # show available checks
  queuecheck show eth0                     # queues, NAPIs and channels
  queuecheck run eth0                      # run every check
  queuecheck run eth0 --check get_queues   # run one check
  queuecheck run --suite nightly.yaml      # run a suite file

Exit status is 0 when every check passed or skipped, 1 when any check
failed or errored, and 2 when the device could not be set up.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := util.SetLogLevel(logLevelFlag); err != nil {
				return err
			}
			if logJSONFlag {
				util.SetJSONFormat()
			}
			switch colorFlag {
			case "auto":
			case "always":
				cli.SetColor(true)
			case "never":
				cli.SetColor(false)
			default:
				return fmt.Errorf("--color must be auto, always or never, got %q", colorFlag)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "Log in JSON")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Colored output (auto, always, never)")

	rootCmd.AddCommand(
		newRunCmd(),
		newListCmd(),
		newShowCmd(),
		newResultsCmd(),
		newSettingsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				if version.Version == "dev" {
					fmt.Fprintln(cmd.OutOrStdout(), "queuecheck dev build (use 'make build' for version info)")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "queuecheck %s\n", version.Info())
				}
			},
		},
	)
	return rootCmd
}

func main() {
	os.Exit(exitCode(newRootCmd().Execute()))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCheckFailure):
		return 1
	case errors.Is(err, errInfraError):
		fmt.Fprintln(os.Stderr, err)
		return 2
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}
