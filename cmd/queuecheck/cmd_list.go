package main

import (
	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/cli"
	"github.com/newtron-network/queuecheck/pkg/queuecheck"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := cli.NewTable(cmd.OutOrStdout(), "CHECK", "ALIAS", "FLAGS", "DESCRIPTION")
			for _, c := range queuecheck.Checks() {
				flags := ""
				if c.Privileged {
					flags = "root"
				}
				if c.Disruptive {
					flags += ",disruptive"
				}
				t.Row(c.Name, c.Alias, trimComma(flags), c.Description)
			}
			t.Flush()
			return nil
		},
	}
}

func trimComma(s string) string {
	if len(s) > 0 && s[0] == ',' {
		return s[1:]
	}
	return s
}
