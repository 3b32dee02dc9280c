package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/queuecheck/pkg/cli"
	"github.com/newtron-network/queuecheck/pkg/cmdexec"
	"github.com/newtron-network/queuecheck/pkg/ethtool"
	"github.com/newtron-network/queuecheck/pkg/link"
	"github.com/newtron-network/queuecheck/pkg/netdev"
	"github.com/newtron-network/queuecheck/pkg/queuecheck"
	"github.com/newtron-network/queuecheck/pkg/sysfs"
	"github.com/newtron-network/queuecheck/pkg/util"
)

func newShowCmd() *cobra.Command {
	var ifname, ethtoolPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "show [interface]",
		Short: "Show queue topology of an interface",
		Long: `Show what every source reports about an interface's queues: the netdev
family's queues and NAPI instances, sysfs and rtnetlink queue counts, the
ethtool channel configuration, and link state.

Nothing is changed; root is not required.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := loadSettings()
			name, err := resolveInterface(cmd, ifname, nil, s, args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			info, err := (&link.Netlink{}).Lookup(ctx, name)
			if err != nil {
				return err
			}
			exec := &cmdexec.Exec{Timeout: resolveCommandTimeout(cmd, timeout, nil, s)}

			src := showSources{
				sysfs:   sysfs.New(),
				ethtool: ethtool.New(pick(flagValue(cmd, "ethtool", ethtoolPath), s.EthtoolPath), exec),
			}
			src.netdev, src.netdevErr = netdev.Dial()
			if src.netdevErr != nil && !errors.Is(src.netdevErr, util.ErrUnsupported) {
				return src.netdevErr
			}
			if src.netdev != nil {
				defer src.netdev.Close()
			}

			return showInterface(ctx, cmd.OutOrStdout(), info, src)
		},
	}

	cmd.Flags().StringVarP(&ifname, "interface", "i", "", "interface to show")
	cmd.Flags().StringVar(&ethtoolPath, "ethtool", "", "path to the ethtool binary")
	cmd.Flags().DurationVar(&timeout, "command-timeout", queuecheck.DefaultCommandTimeout, "timeout for each external command")
	return cmd
}

// showSources are the views show reads from. netdev is nil when the family
// is unavailable; netdevErr then says why.
type showSources struct {
	sysfs     *sysfs.Inspector
	netdev    *netdev.Client
	netdevErr error
	ethtool   *ethtool.Tool
}

func showInterface(ctx context.Context, w io.Writer, info *link.Info, src showSources) error {
	ifname := info.Name
	fs, nd, ndErr, tool := src.sysfs, src.netdev, src.netdevErr, src.ethtool

	oper := info.OperState
	if s, err := fs.OperState(ifname); err == nil {
		oper = s
	}

	fmt.Fprintf(w, "%s (ifindex %d)\n", cli.Bold(ifname), info.Index)
	fmt.Fprintf(w, "  admin: %s  oper: %s  mtu: %d  mac: %s", cli.OnOff(info.Up), oper, info.MTU, cli.Dash(info.HardwareAddr))
	if carrier, err := fs.Carrier(ifname); err == nil {
		fmt.Fprintf(w, "  link detected: %s", cli.OnOff(carrier))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	t := cli.NewTable(w, "TYPE", "NETDEV", "SYSFS", "RTNETLINK").WithPrefix("  ")

	rtnl := map[netdev.QueueType]int{netdev.QueueTypeRX: info.NumRxQueues, netdev.QueueTypeTX: info.NumTxQueues}
	for _, qt := range netdev.QueueTypes {
		nCol := "n/a"
		if nd != nil {
			n, ok, err := nd.QueueCount(ctx, uint32(info.Index), qt)
			switch {
			case err != nil:
				nCol = "error"
				util.WithInterface(ifname).Warnf("netdev %s count: %v", qt, err)
			case ok:
				nCol = strconv.Itoa(n)
			default:
				nCol = "-"
			}
		}
		sCol := "error"
		if n, err := fs.Count(ifname, qt); err == nil {
			sCol = strconv.Itoa(n)
		}
		t.Row(qt.String(), nCol, sCol, strconv.Itoa(rtnl[qt]))
	}
	t.Flush()

	if nd == nil {
		fmt.Fprintf(w, "\n  netdev: %v\n", ndErr)
	} else {
		if err := showNetdev(ctx, w, nd, uint32(info.Index)); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	ch, err := tool.Channels(ctx, ifname)
	if err != nil {
		fmt.Fprintf(w, "  channels: %v\n", err)
		return nil
	}
	ct := cli.NewTable(w, "CHANNEL", "CURRENT", "MAX").WithPrefix("  ")
	ct.Row("rx", strconv.Itoa(ch.RxCount), strconv.Itoa(ch.RxMax))
	ct.Row("tx", strconv.Itoa(ch.TxCount), strconv.Itoa(ch.TxMax))
	ct.Row("other", strconv.Itoa(ch.OtherCount), strconv.Itoa(ch.OtherMax))
	ct.Row("combined", strconv.Itoa(ch.CombinedCount), strconv.Itoa(ch.CombinedMax))
	ct.Flush()
	fmt.Fprintf(w, "  reconfigured with: ethtool -L %s %s N\n", ifname, ethtool.ChannelParam(ch))
	return nil
}

func showNetdev(ctx context.Context, w io.Writer, nd *netdev.Client, ifindex uint32) error {
	if dev, err := nd.Device(ctx, ifindex); err == nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  xdp features:     %s\n", joinOrDash(dev.XDPFeatureNames()))
		fmt.Fprintf(w, "  xdp zc max segs:  %d\n", dev.XDPZCMaxSegs)
		fmt.Fprintf(w, "  xdp rx metadata:  %s\n", joinOrDash(dev.XDPRxMetadataNames()))
		fmt.Fprintf(w, "  xsk features:     %s\n", joinOrDash(dev.XSKFeatureNames()))
	} else {
		util.Logger.Debugf("dev-get %d: %v", ifindex, err)
	}

	queues, err := nd.Queues(ctx, ifindex)
	if err != nil {
		return err
	}
	if len(queues) > 0 {
		ids := map[netdev.QueueType][]uint32{}
		for _, q := range queues {
			ids[q.Type] = append(ids[q.Type], q.ID)
		}
		fmt.Fprintln(w)
		for _, t := range netdev.QueueTypes {
			fmt.Fprintf(w, "  %s queue ids: %s\n", t, cli.Dash(util.CompactIDs(ids[t])))
		}
		fmt.Fprintln(w)
		qt := cli.NewTable(w, "QUEUE", "TYPE", "NAPI").WithPrefix("  ")
		for _, q := range queues {
			qt.Row(strconv.FormatUint(uint64(q.ID), 10), q.Type.String(), optUint(q.NapiID))
		}
		qt.Flush()
	}

	napis, err := nd.NAPIs(ctx, ifindex)
	if err != nil {
		return err
	}
	if len(napis) > 0 {
		fmt.Fprintln(w)
		nt := cli.NewTable(w, "NAPI", "IRQ", "PID").WithPrefix("  ")
		for _, n := range napis {
			nt.Row(strconv.FormatUint(uint64(n.ID), 10), optInt(n.IRQ), pidString(n.PID))
		}
		nt.Flush()
	}
	return nil
}

// Absent values are returned as empty cells.
func optInt(v int) string {
	if v < 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func pidString(pid int) string {
	if pid <= 0 {
		return ""
	}
	return strconv.Itoa(pid)
}

func optUint(v uint32) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(v), 10)
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, " ")
}
