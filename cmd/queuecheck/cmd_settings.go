package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/cli"
	"github.com/newtron-network/queuecheck/pkg/settings"
)

func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.queuecheck/settings.json.

Settings provide defaults when flags and environment variables are absent:
  - default_interface: Interface to check
  - ethtool_path:      ethtool binary
  - command_timeout:   Timeout for each external command (e.g. 10s)
  - link_backend:      netlink or ip
  - report_dir:        Directory for relative --report paths
  - redis_addr:        Results database

Examples:
  queuecheck settings show
  queuecheck settings set default_interface enp3s0f0
  queuecheck settings set command_timeout 30s
  queuecheck settings clear`,
	}

	settingsCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show current settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					return fmt.Errorf("loading settings: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Settings file: %s\n\n", settings.DefaultSettingsPath())

				t := cli.NewTable(cmd.OutOrStdout(), "SETTING", "VALUE")
				for _, k := range settings.Keys {
					v, _ := s.Get(k)
					if v == "" {
						v = "(not set)"
					}
					t.Row(k, v)
				}
				t.Flush()
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <setting> <value>",
			Short: "Set a setting value",
			Long:  "Set a persistent setting value.\n\nAvailable settings: " + strings.Join(settings.Keys, ", "),
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					s = &settings.Settings{}
				}
				if err := s.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := s.Save(); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <setting>",
			Short: "Get a setting value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := settings.Load()
				if err != nil {
					return fmt.Errorf("loading settings: %w", err)
				}
				v, err := s.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Reset all settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				s := &settings.Settings{}
				if err := s.Save(); err != nil {
					return fmt.Errorf("saving settings: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings cleared.")
				return nil
			},
		},
	)
	return settingsCmd
}
