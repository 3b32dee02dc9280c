package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/cli"
	"github.com/newtron-network/queuecheck/pkg/resultdb"
)

func newResultsCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "results [interface]",
		Short: "Show results published to the results database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			addr := pick(flagValue(cmd, "redis", f.redisAddr), os.Getenv(envRedis), s.RedisAddr)
			if addr == "" {
				return fmt.Errorf("no results database: use --redis, %s, or set redis_addr", envRedis)
			}
			var ifname string
			if len(args) > 0 {
				ifname = args[0]
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client, cleanup, err := openResults(ctx, &f, addr, f.redisDB)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := client.Results(ctx, ifname)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results.")
				return nil
			}

			t := cli.NewTable(cmd.OutOrStdout(), "INTERFACE", "CHECK", "STATUS", "HOST", "TIME", "MESSAGE")
			for _, e := range entries {
				t.Row(e.Interface, e.Check, colorStatus(e.Fields["status"]), e.Fields["host"],
					e.Fields["timestamp"], e.Fields["message"])
			}
			t.Flush()

			if ifname != "" {
				holder, since, err := client.LockHolder(ctx, ifname)
				if err == nil && holder != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s is locked by %s since %s\n", ifname, holder, since.Format(time.RFC3339))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.redisAddr, "redis", "", "results Redis address")
	cmd.Flags().IntVar(&f.redisDB, "redis-db", resultdb.DefaultDB, "Redis database for results")
	cmd.Flags().StringVar(&f.tunnelHost, "ssh-tunnel", "", "reach --redis through SSH on this host")
	cmd.Flags().StringVar(&f.tunnelUser, "ssh-user", os.Getenv("USER"), "SSH user for --ssh-tunnel")
	cmd.Flags().StringVar(&f.tunnelKey, "ssh-key", "", "SSH private key for --ssh-tunnel")
	return cmd
}

func colorStatus(s string) string {
	switch s {
	case "PASS":
		return cli.Green(s)
	case "FAIL", "ERROR":
		return cli.Red(s)
	case "SKIP":
		return cli.Yellow(s)
	}
	return s
}
