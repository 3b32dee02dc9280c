package queuecheck

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/newtron-network/queuecheck/pkg/ethtool"
	"github.com/newtron-network/queuecheck/pkg/netdev"
)

// fakeDevice models one NIC as seen through netdev, sysfs, ethtool and
// rtnetlink.
type fakeDevice struct {
	ifname  string
	ifindex uint32

	rx, tx   int
	combined bool // channels are combined rather than dedicated rx/tx
	up       bool
	napis    []netdev.NAPI

	// netdevSkew is added to the netdev rx count to simulate disagreement.
	netdevSkew int
	// noQueueReporting makes netdev dumps empty even while up.
	noQueueReporting bool
	// ignoreSet makes ethtool -L succeed without changing anything.
	ignoreSet bool
	// byIDWhileDown is returned by by-id queries while down; nil means the
	// query wrongly succeeds.
	byIDWhileDown error

	setErrs  []error // consumed per SetQueueCount call
	setCalls []string
	linkOps  []string
	downErr  error
	upErr    error
	sysfsErr error

	napiByIDCalls int
}

func newFakeDevice(rx, tx int) *fakeDevice {
	return &fakeDevice{
		ifname:        "eth0",
		ifindex:       2,
		rx:            rx,
		tx:            tx,
		combined:      true,
		up:            true,
		napis:         []netdev.NAPI{{ID: 8193, Ifindex: 2, IRQ: 40}, {ID: 8194, Ifindex: 2, IRQ: 41}},
		byIDWhileDown: enoent("queue-get"),
	}
}

func enoent(cmd string) error {
	return &netdev.RequestError{Cmd: cmd, Code: -int(unix.ENOENT), Err: unix.ENOENT}
}

func (d *fakeDevice) env() *Env {
	return &Env{
		Ifname:     d.ifname,
		Ifindex:    d.ifindex,
		Netdev:     d,
		Sysfs:      (*fakeSysfs)(d),
		Ethtool:    (*fakeEthtool)(d),
		Link:       (*fakeLink)(d),
		Privileged: true,
	}
}

// QueueClient

func (d *fakeDevice) QueueCount(_ context.Context, ifindex uint32, t netdev.QueueType) (int, bool, error) {
	if ifindex != d.ifindex {
		return 0, false, fmt.Errorf("unexpected ifindex %d", ifindex)
	}
	if !d.up || d.noQueueReporting || d.rx+d.tx == 0 {
		return 0, false, nil
	}
	if t == netdev.QueueTypeRX {
		return d.rx + d.netdevSkew, true, nil
	}
	return d.tx, true, nil
}

func (d *fakeDevice) NAPIs(context.Context, uint32) ([]netdev.NAPI, error) {
	if !d.up {
		return nil, nil
	}
	return d.napis, nil
}

func (d *fakeDevice) QueueByID(_ context.Context, _ uint32, t netdev.QueueType, id uint32) (*netdev.Queue, error) {
	if !d.up {
		if d.byIDWhileDown != nil {
			return nil, d.byIDWhileDown
		}
		return &netdev.Queue{ID: id, Type: t, Ifindex: d.ifindex}, nil
	}
	return &netdev.Queue{ID: id, Type: t, Ifindex: d.ifindex}, nil
}

func (d *fakeDevice) NAPIByID(_ context.Context, id uint32) (*netdev.NAPI, error) {
	d.napiByIDCalls++
	if !d.up {
		if d.byIDWhileDown != nil {
			return nil, enoent("napi-get")
		}
	}
	for _, n := range d.napis {
		if n.ID == id {
			n := n
			return &n, nil
		}
	}
	return nil, &netdev.RequestError{Cmd: "napi-get", Code: -int(unix.EINVAL), Err: unix.EINVAL}
}

type fakeSysfs fakeDevice

func (s *fakeSysfs) Count(_ string, t netdev.QueueType) (int, error) {
	if s.sysfsErr != nil {
		return 0, s.sysfsErr
	}
	if t == netdev.QueueTypeRX {
		return s.rx, nil
	}
	return s.tx, nil
}

func (s *fakeSysfs) Total(ifname string) (int, error) {
	if s.sysfsErr != nil {
		return 0, s.sysfsErr
	}
	return s.rx + s.tx, nil
}

type fakeEthtool fakeDevice

func (e *fakeEthtool) Channels(context.Context, string) (*ethtool.ChannelConfig, error) {
	if e.combined {
		return &ethtool.ChannelConfig{CombinedCount: e.rx, CombinedMax: 64}, nil
	}
	return &ethtool.ChannelConfig{RxCount: e.rx, TxCount: e.tx, RxMax: 64, TxMax: 64}, nil
}

func (e *fakeEthtool) SetQueueCount(_ context.Context, _ string, count int, cur *ethtool.ChannelConfig) error {
	param := ethtool.ChannelParam(cur)
	e.setCalls = append(e.setCalls, fmt.Sprintf("%s %d", param, count))
	if len(e.setErrs) > 0 {
		err := e.setErrs[0]
		e.setErrs = e.setErrs[1:]
		if err != nil {
			return err
		}
	}
	if e.ignoreSet {
		return nil
	}
	e.rx = count
	if param == ethtool.ParamCombined {
		e.tx = count
	}
	return nil
}

type fakeLink fakeDevice

func (l *fakeLink) SetUp(context.Context, string) error {
	l.linkOps = append(l.linkOps, "up")
	if l.upErr != nil {
		return l.upErr
	}
	l.up = true
	return nil
}

func (l *fakeLink) SetDown(context.Context, string) error {
	l.linkOps = append(l.linkOps, "down")
	if l.downErr != nil {
		return l.downErr
	}
	l.up = false
	return nil
}

var errTimeout = errors.Join(errors.New("'ethtool -L eth0 combined 7' failed"), context.DeadlineExceeded)
