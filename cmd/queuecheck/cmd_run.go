package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/fixture"
	"github.com/newtron-network/queuecheck/pkg/queuecheck"
	"github.com/newtron-network/queuecheck/pkg/resultdb"
	"github.com/newtron-network/queuecheck/pkg/util"
)

type runFlags struct {
	ifname         string
	ethtoolPath    string
	linkBackend    string
	commandTimeout time.Duration
	checkTimeout   time.Duration
	checks         []string
	disruptive     bool
	suitePath      string
	reportPath     string
	junitPath      string
	redisAddr      string
	redisDB        int
	tunnelHost     string
	tunnelUser     string
	tunnelKey      string
	lock           bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [interface]",
		Short: "Run checks against an interface",
		Long: `Run the selected checks against one interface, in registry order.

Every check runs even if an earlier one fails. Checks that change device
state need root; disruptive checks take the link down and can be turned
off with --disruptive=false.

Examples:
  queuecheck run eth0
  queuecheck run eth0 --check get_queues --check addremove_queues
  queuecheck run eth0 --disruptive=false --junit out/junit.xml
  queuecheck run --suite nightly.yaml --redis 127.0.0.1:6379`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd, &f, args)
		},
	}

	addDeviceFlags(cmd, &f.ifname, &f.ethtoolPath, &f.linkBackend, &f.commandTimeout)
	cmd.Flags().StringArrayVarP(&f.checks, "check", "c", nil, "checks to run by name or alias, comma separated or repeated (default all)")
	cmd.Flags().BoolVar(&f.disruptive, "disruptive", true, "run checks that take the link down")
	cmd.Flags().DurationVar(&f.checkTimeout, "check-timeout", queuecheck.DefaultCheckTimeout, "timeout for each check")
	cmd.Flags().StringVar(&f.suitePath, "suite", "", "YAML suite file")
	cmd.Flags().StringVar(&f.reportPath, "report", "", "markdown report output path")
	cmd.Flags().StringVar(&f.junitPath, "junit", "", "JUnit XML output path")
	cmd.Flags().StringVar(&f.redisAddr, "redis", "", "publish results to this Redis address")
	cmd.Flags().IntVar(&f.redisDB, "redis-db", resultdb.DefaultDB, "Redis database for results")
	cmd.Flags().StringVar(&f.tunnelHost, "ssh-tunnel", "", "reach --redis through SSH on this host")
	cmd.Flags().StringVar(&f.tunnelUser, "ssh-user", os.Getenv("USER"), "SSH user for --ssh-tunnel")
	cmd.Flags().StringVar(&f.tunnelKey, "ssh-key", "", "SSH private key for --ssh-tunnel")
	cmd.Flags().BoolVar(&f.lock, "lock", true, "hold a run lock on the interface in the results database")

	return cmd
}

func runChecks(cmd *cobra.Command, f *runFlags, args []string) error {
	s := loadSettings()

	var suite *queuecheck.Suite
	if f.suitePath != "" {
		var err error
		if suite, err = queuecheck.ParseSuite(f.suitePath); err != nil {
			return err
		}
	}

	ifname, err := resolveInterface(cmd, f.ifname, suite, s, args)
	if err != nil {
		return err
	}

	opts := queuecheck.RunOptions{Checks: util.SplitCommaSeparated(f.checks...), CheckTimeout: f.checkTimeout}
	linkBackend := flagValue(cmd, "link-backend", f.linkBackend)
	ethtoolPath := pick(flagValue(cmd, "ethtool", f.ethtoolPath), os.Getenv(envEthtool))
	if suite != nil {
		so := suite.RunOptions()
		if !cmd.Flags().Changed("check") {
			opts.Checks = so.Checks
		}
		if !cmd.Flags().Changed("check-timeout") {
			opts.CheckTimeout = so.CheckTimeout
		}
		opts.SkipDisruptive = so.SkipDisruptive
		linkBackend = pick(linkBackend, suite.LinkBackend)
		ethtoolPath = pick(ethtoolPath, suite.Ethtool)
	}
	if cmd.Flags().Changed("disruptive") {
		opts.SkipDisruptive = !f.disruptive
	}
	// Reject unknown names before touching the device.
	if _, err := queuecheck.SelectChecks(opts.Checks); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fx, err := fixture.Acquire(ctx, fixture.Config{
		Ifname:      ifname,
		EthtoolPath: pick(ethtoolPath, s.EthtoolPath),
		LinkBackend: pick(linkBackend, s.LinkBackend),
		Timeout:     resolveCommandTimeout(cmd, f.commandTimeout, suite, s),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errInfraError, err)
	}

	progress := queuecheck.MultiReporter{queuecheck.NewConsoleProgress(verboseFlag)}

	var suiteRedis string
	var suiteDB int
	if suite != nil {
		suiteRedis, suiteDB = suite.Results.Redis, suite.Results.DB
	}
	redisAddr := pick(flagValue(cmd, "redis", f.redisAddr), os.Getenv(envRedis), suiteRedis, s.RedisAddr)
	var pub *resultdb.Reporter
	if redisAddr != "" {
		db := f.redisDB
		if !cmd.Flags().Changed("redis-db") && suiteRedis != "" {
			db = suiteDB
		}
		client, cleanup, err := openResults(ctx, f, redisAddr, db)
		if err != nil {
			_ = fx.Release(ctx)
			return fmt.Errorf("%w: %v", errInfraError, err)
		}
		defer cleanup()

		if f.lock {
			if err := client.AcquireLock(ctx, fx.Ifname, opts.CheckTimeout*3+time.Minute); err != nil {
				_ = fx.Release(ctx)
				return fmt.Errorf("%w: %v", errInfraError, err)
			}
			// Released after the fixture so the link is back up first.
			defer func() {
				if err := client.ReleaseLock(context.Background(), fx.Ifname); err != nil {
					util.Logger.Warnf("releasing run lock: %v", err)
				}
			}()
		}

		pub = resultdb.NewReporter(client)
		progress = append(progress, pub)
	}

	res, err := queuecheck.RunFixture(ctx, fx, progress, opts)
	if err != nil {
		return err
	}

	if err := writeReports(res, f, suite); err != nil {
		util.Logger.Warnf("writing reports: %v", err)
	}
	if pub != nil {
		if err := pub.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: results not fully published: %v\n", err)
		}
	}

	if queuecheck.ExitCode(res) != 0 {
		return errCheckFailure
	}
	return nil
}

// openResults connects to the results database, through an SSH tunnel when
// one is configured.
func openResults(ctx context.Context, f *runFlags, addr string, db int) (*resultdb.Client, func(), error) {
	var tunnel *resultdb.SSHTunnel
	if f.tunnelHost != "" {
		var err error
		tunnel, err = resultdb.NewSSHTunnel(resultdb.TunnelConfig{
			Host:     f.tunnelHost,
			User:     f.tunnelUser,
			Password: os.Getenv("QUEUECHECK_SSH_PASSWORD"),
			KeyFile:  f.tunnelKey,
			Remote:   addr,
		})
		if err != nil {
			return nil, nil, err
		}
		addr = tunnel.LocalAddr()
	}

	client := resultdb.NewClient(resultdb.Options{Addr: addr, DB: db})
	cleanup := func() {
		client.Close()
		if tunnel != nil {
			tunnel.Close()
		}
	}
	if err := client.Connect(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return client, cleanup, nil
}

// writeReports writes the markdown and JUnit reports requested by flags or
// the suite file.
func writeReports(res *queuecheck.RunResult, f *runFlags, suite *queuecheck.Suite) error {
	mdPath, junitPath := f.reportPath, f.junitPath
	if suite != nil {
		mdPath = pick(mdPath, suite.Report.Markdown)
		junitPath = pick(junitPath, suite.Report.JUnit)
	}

	gen := &queuecheck.ReportGenerator{Results: []*queuecheck.RunResult{res}}
	if mdPath != "" {
		if !filepath.IsAbs(mdPath) && filepath.Dir(mdPath) == "." {
			mdPath = filepath.Join(loadSettings().GetReportDir(), mdPath)
		}
		if err := gen.WriteMarkdown(mdPath); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", mdPath)
	}
	if junitPath != "" {
		if err := gen.WriteJUnit(junitPath); err != nil {
			return err
		}
	}
	return nil
}
