package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/queuecheck"
	"github.com/newtron-network/queuecheck/pkg/settings"
)

// Environment variables consulted after flags.
const (
	envIfname  = "QUEUECHECK_IFNAME"
	envEthtool = "QUEUECHECK_ETHTOOL"
	envRedis   = "QUEUECHECK_REDIS"
)

// loadSettings returns the user settings, or empty settings if they cannot be read.
func loadSettings() *settings.Settings {
	s, err := settings.Load()
	if err != nil {
		return &settings.Settings{}
	}
	return s
}

// pick returns the first non-empty value.
func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flagValue returns val if the flag was set on the command line.
func flagValue(cmd *cobra.Command, name, val string) string {
	if cmd.Flags().Changed(name) {
		return val
	}
	return ""
}

// resolveInterface resolves the device under test from:
// positional arg > --interface > QUEUECHECK_IFNAME > suite > settings.
func resolveInterface(cmd *cobra.Command, flagVal string, suite *queuecheck.Suite, s *settings.Settings, args []string) (string, error) {
	var arg, fromSuite string
	if len(args) > 0 {
		arg = args[0]
	}
	if suite != nil {
		fromSuite = suite.Interface
	}
	ifname := pick(arg, flagValue(cmd, "interface", flagVal), os.Getenv(envIfname), fromSuite, s.DefaultInterface)
	if ifname == "" {
		return "", fmt.Errorf("no interface: pass one as an argument, with --interface, in %s, or set default_interface", envIfname)
	}
	return ifname, nil
}

// resolveCommandTimeout resolves the per-command timeout from:
// --command-timeout > suite > settings > default.
func resolveCommandTimeout(cmd *cobra.Command, flagVal time.Duration, suite *queuecheck.Suite, s *settings.Settings) time.Duration {
	if cmd.Flags().Changed("command-timeout") {
		return flagVal
	}
	if suite != nil && suite.CommandTimeout > 0 {
		return suite.CommandTimeout
	}
	return s.GetCommandTimeout(queuecheck.DefaultCommandTimeout)
}

// addDeviceFlags registers the flags of commands that change a device.
func addDeviceFlags(cmd *cobra.Command, ifname, ethtoolPath, backend *string, timeout *time.Duration) {
	cmd.Flags().StringVarP(ifname, "interface", "i", "", "interface to check")
	cmd.Flags().StringVar(ethtoolPath, "ethtool", "", "path to the ethtool binary")
	cmd.Flags().StringVar(backend, "link-backend", "", "how to toggle the link: netlink or ip")
	cmd.Flags().DurationVar(timeout, "command-timeout", queuecheck.DefaultCommandTimeout, "timeout for each external command")
}
