// Package fixture acquires the device under test together with the clients
// used to inspect and reconfigure it, and guarantees that every cleanup
// registered against it runs on release.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/newtron-network/queuecheck/pkg/cmdexec"
	"github.com/newtron-network/queuecheck/pkg/ethtool"
	"github.com/newtron-network/queuecheck/pkg/link"
	"github.com/newtron-network/queuecheck/pkg/netdev"
	"github.com/newtron-network/queuecheck/pkg/sysfs"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// Config selects the device and the tools used to drive it.
type Config struct {
	Ifname      string
	EthtoolPath string
	LinkBackend string
	Timeout     time.Duration // per external command
	SysfsRoot   string
}

// Fixture is an acquired device under test.
type Fixture struct {
	Ifname  string
	Ifindex int
	// Channels is the channel configuration observed at acquisition; nil when
	// the driver does not report channels.
	Channels *ethtool.ChannelConfig

	// Netdev is nil when the kernel lacks the netdev family; NetdevErr says why.
	Netdev    *netdev.Client
	NetdevErr error
	Sysfs     *sysfs.Inspector
	Ethtool   *ethtool.Tool
	Link      link.Controller

	// Privileged is true when the process may change link and channel state.
	Privileged bool

	scope *Scope
}

// Replaced in tests.
var (
	dialNetdev = netdev.Dial
	newLink    = link.New
	geteuid    = os.Geteuid
)

// Acquire looks up cfg.Ifname and opens the clients the checks need. A
// missing netdev family is not an error: Netdev stays nil.
func Acquire(ctx context.Context, cfg Config) (*Fixture, error) {
	v := &util.ValidationBuilder{}
	v.Add(cfg.Ifname != "", "interface is required")
	v.Add(cfg.Timeout >= 0, "timeout must not be negative")
	if err := v.Build(); err != nil {
		return nil, err
	}

	exec := &cmdexec.Exec{Timeout: cfg.Timeout}
	lc, err := newLink(cfg.LinkBackend, exec)
	if err != nil {
		return nil, err
	}

	info, err := lc.Lookup(ctx, cfg.Ifname)
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", cfg.Ifname, err)
	}

	f := &Fixture{
		Ifname:     info.Name,
		Ifindex:    info.Index,
		Ethtool:    ethtool.New(cfg.EthtoolPath, exec),
		Link:       lc,
		Privileged: geteuid() == 0,
		scope:      NewScope(),
	}
	if cfg.SysfsRoot != "" {
		f.Sysfs = sysfs.NewFS(os.DirFS(cfg.SysfsRoot))
	} else {
		f.Sysfs = sysfs.New()
	}

	log := util.WithInterface(f.Ifname)

	nd, err := dialNetdev()
	switch {
	case err == nil:
		f.Netdev = nd
		f.Defer("close netdev socket", func(context.Context) error {
			return nd.Close()
		})
	case errors.Is(err, util.ErrUnsupported):
		log.Warnf("netdev family unavailable: %v", err)
		f.NetdevErr = err
	default:
		_ = f.Release(ctx)
		return nil, fmt.Errorf("acquiring %s: %w", cfg.Ifname, err)
	}

	if ch, err := f.Ethtool.Channels(ctx, f.Ifname); err != nil {
		log.Debugf("channel config unavailable: %v", err)
	} else {
		f.Channels = ch
	}

	log.WithField("ifindex", f.Ifindex).Info("device acquired")
	return f, nil
}

// New builds a Fixture from already-open parts. Used by callers that bring
// their own clients.
func New(ifname string, ifindex int) *Fixture {
	return &Fixture{
		Ifname:     ifname,
		Ifindex:    ifindex,
		Privileged: geteuid() == 0,
		scope:      NewScope(),
	}
}

// Defer registers a fixture-level cleanup action, run by Release.
func (f *Fixture) Defer(name string, fn Action) {
	f.scope.Defer(name, fn)
}

// Release runs every fixture-level cleanup exactly once, most recent first,
// and returns their joined errors.
func (f *Fixture) Release(ctx context.Context) error {
	err := f.scope.Close(ctx)
	if err != nil {
		util.WithInterface(f.Ifname).Warnf("release: %v", err)
	}
	return err
}
