package queuecheck

import (
	"context"

	"github.com/newtron-network/queuecheck/pkg/ethtool"
	"github.com/newtron-network/queuecheck/pkg/fixture"
	"github.com/newtron-network/queuecheck/pkg/netdev"
)

// QueueClient is the control-plane view of a device's queues.
type QueueClient interface {
	QueueCount(ctx context.Context, ifindex uint32, t netdev.QueueType) (int, bool, error)
	NAPIs(ctx context.Context, ifindex uint32) ([]netdev.NAPI, error)
	QueueByID(ctx context.Context, ifindex uint32, t netdev.QueueType, id uint32) (*netdev.Queue, error)
	NAPIByID(ctx context.Context, id uint32) (*netdev.NAPI, error)
}

// QueueCounter is the sysfs view of a device's queues.
type QueueCounter interface {
	Count(ifname string, t netdev.QueueType) (int, error)
	Total(ifname string) (int, error)
}

// ChannelTool reads and changes channel counts.
type ChannelTool interface {
	Channels(ctx context.Context, ifname string) (*ethtool.ChannelConfig, error)
	SetQueueCount(ctx context.Context, ifname string, count int, cur *ethtool.ChannelConfig) error
}

// LinkController changes a device's administrative state.
type LinkController interface {
	SetUp(ctx context.Context, ifname string) error
	SetDown(ctx context.Context, ifname string) error
}

// Env is what a check sees of the device under test. Netdev is nil when the
// kernel does not provide the netdev family.
type Env struct {
	Ifname  string
	Ifindex uint32

	Netdev  QueueClient
	Sysfs   QueueCounter
	Ethtool ChannelTool
	Link    LinkController

	// Privileged is true when the process may change device state.
	Privileged bool

	scope *fixture.Scope
}

// EnvFromFixture exposes an acquired fixture to checks.
func EnvFromFixture(f *fixture.Fixture) *Env {
	env := &Env{
		Ifname:     f.Ifname,
		Ifindex:    uint32(f.Ifindex),
		Link:       f.Link,
		Privileged: f.Privileged,
	}
	// Keep absent clients as nil interfaces.
	if f.Netdev != nil {
		env.Netdev = f.Netdev
	}
	if f.Sysfs != nil {
		env.Sysfs = f.Sysfs
	}
	if f.Ethtool != nil {
		env.Ethtool = f.Ethtool
	}
	return env
}

// Defer registers a cleanup that runs when the current check returns,
// whatever its outcome.
func (e *Env) Defer(name string, fn fixture.Action) {
	if e.scope == nil {
		e.scope = fixture.NewScope()
	}
	e.scope.Defer(name, fn)
}

// Cleanup runs the cleanups registered with Defer, most recent first.
func (e *Env) Cleanup(ctx context.Context) error {
	if e.scope == nil {
		return nil
	}
	return e.scope.Close(ctx)
}

// withScope returns a copy of e bound to a fresh per-check scope.
func (e *Env) withScope() (*Env, *fixture.Scope) {
	c := *e
	c.scope = fixture.NewScope()
	return &c, c.scope
}
