// Package link looks up network interfaces and changes their administrative
// state.
package link

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"github.com/newtron-network/queuecheck/pkg/cmdexec"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// Info describes an interface as rtnetlink reports it.
type Info struct {
	Name         string
	Index        int
	Up           bool // administratively up
	OperState    string
	MTU          int
	HardwareAddr string
	NumRxQueues  int
	NumTxQueues  int
}

// Controller changes the administrative state of an interface.
type Controller interface {
	Lookup(ctx context.Context, ifname string) (*Info, error)
	SetUp(ctx context.Context, ifname string) error
	SetDown(ctx context.Context, ifname string) error
}

// Backends
const (
	BackendNetlink = "netlink"
	BackendIP      = "ip"
)

// Replaced in tests.
var (
	linkByName  = netlink.LinkByName
	linkSetUp   = netlink.LinkSetUp
	linkSetDown = netlink.LinkSetDown
)

// New returns the Controller for backend. The ip backend runs the ip(8)
// binary through exec; lookups always use rtnetlink.
func New(backend string, exec cmdexec.Runner) (Controller, error) {
	switch backend {
	case "", BackendNetlink:
		return &Netlink{}, nil
	case BackendIP:
		if exec == nil {
			exec = &cmdexec.Exec{}
		}
		return &Command{Path: "ip", Runner: exec}, nil
	}
	return nil, fmt.Errorf("%w: unknown link backend %q", util.ErrInvalidConfig, backend)
}

// Netlink drives links over rtnetlink.
type Netlink struct{}

func lookup(ifname string) (netlink.Link, error) {
	l, err := linkByName(ifname)
	if err != nil {
		var nf netlink.LinkNotFoundError
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("interface %s: %w", ifname, util.ErrNotFound)
		}
		return nil, fmt.Errorf("looking up interface %s: %w", ifname, err)
	}
	return l, nil
}

// Lookup returns the rtnetlink view of ifname.
func (n *Netlink) Lookup(_ context.Context, ifname string) (*Info, error) {
	l, err := lookup(ifname)
	if err != nil {
		return nil, err
	}
	attrs := l.Attrs()
	return &Info{
		Name:         attrs.Name,
		Index:        attrs.Index,
		Up:           attrs.Flags&net.FlagUp != 0,
		OperState:    attrs.OperState.String(),
		MTU:          attrs.MTU,
		HardwareAddr: attrs.HardwareAddr.String(),
		NumRxQueues:  attrs.NumRxQueues,
		NumTxQueues:  attrs.NumTxQueues,
	}, nil
}

// SetUp brings ifname administratively up.
func (n *Netlink) SetUp(_ context.Context, ifname string) error {
	l, err := lookup(ifname)
	if err != nil {
		return err
	}
	util.WithInterface(ifname).Info("link up")
	if err := linkSetUp(l); err != nil {
		return fmt.Errorf("setting %s up: %w", ifname, err)
	}
	return nil
}

// SetDown brings ifname administratively down.
func (n *Netlink) SetDown(_ context.Context, ifname string) error {
	l, err := lookup(ifname)
	if err != nil {
		return err
	}
	util.WithInterface(ifname).Info("link down")
	if err := linkSetDown(l); err != nil {
		return fmt.Errorf("setting %s down: %w", ifname, err)
	}
	return nil
}

// Command drives links with "ip link set dev <ifname> up|down".
type Command struct {
	Path   string
	Runner cmdexec.Runner
}

// Lookup uses rtnetlink; ip(8) output is not parsed.
func (c *Command) Lookup(ctx context.Context, ifname string) (*Info, error) {
	return (&Netlink{}).Lookup(ctx, ifname)
}

// SetUp brings ifname administratively up.
func (c *Command) SetUp(ctx context.Context, ifname string) error {
	return c.set(ctx, ifname, "up")
}

// SetDown brings ifname administratively down.
func (c *Command) SetDown(ctx context.Context, ifname string) error {
	return c.set(ctx, ifname, "down")
}

func (c *Command) set(ctx context.Context, ifname, state string) error {
	util.WithInterface(ifname).Infof("link %s", state)
	if _, err := c.Runner.Run(ctx, c.Path, "link", "set", "dev", ifname, state); err != nil {
		return fmt.Errorf("setting %s %s: %w", ifname, state, err)
	}
	return nil
}
