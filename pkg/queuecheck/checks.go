// Package queuecheck verifies that a device's queue topology as reported by
// the netdev generic netlink family agrees with sysfs, survives a channel
// count change, and that by-id netdev queries fail with ENOENT while the
// device is down.
package queuecheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/newtron-network/queuecheck/pkg/netdev"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// Check is one verification scenario.
type Check struct {
	Name        string
	Alias       string // name used by the kernel selftest
	Description string
	// Disruptive checks take the link down.
	Disruptive bool
	// Privileged checks change device state and need CAP_NET_ADMIN.
	Privileged bool
	Run        func(ctx context.Context, env *Env) error
}

var registry = []*Check{
	{
		Name:        "check_static_consistency",
		Alias:       "get_queues",
		Description: "netdev queue counts match sysfs for rx and tx",
		Run:         checkStaticConsistency,
	},
	{
		Name:        "check_reconfigure_roundtrip",
		Alias:       "addremove_queues",
		Description: "removing one queue with ethtool -L and restoring it is seen by netdev and sysfs",
		Privileged:  true,
		Run:         checkReconfigureRoundtrip,
	},
	{
		Name:        "check_down_error_behavior",
		Alias:       "check_down",
		Description: "by-id queue and NAPI queries fail with ENOENT while the link is down",
		Disruptive:  true,
		Privileged:  true,
		Run:         checkDownErrorBehavior,
	},
}

// Checks returns every check in execution order.
func Checks() []*Check {
	out := make([]*Check, len(registry))
	copy(out, registry)
	return out
}

// LookupCheck finds a check by name or alias.
func LookupCheck(name string) (*Check, bool) {
	for _, c := range registry {
		if c.Name == name || c.Alias == name {
			return c, true
		}
	}
	return nil, false
}

// SelectChecks resolves names to checks, keeping registry order. No names
// selects every check.
func SelectChecks(names []string) ([]*Check, error) {
	if len(names) == 0 {
		return Checks(), nil
	}

	want := make(map[string]bool)
	v := &util.ValidationBuilder{}
	for _, n := range names {
		c, ok := LookupCheck(n)
		if !ok {
			v.AddErrorf("unknown check %q", n)
			continue
		}
		want[c.Name] = true
	}
	if err := v.Build(); err != nil {
		return nil, err
	}

	var out []*Check
	for _, c := range registry {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}

func requireNetdev(env *Env) error {
	if env.Netdev == nil {
		return Skipf("netdev generic netlink family not available")
	}
	return nil
}

// netdevCount returns the netdev count of type t, or a skip when the device
// reports no queues at all.
func netdevCount(ctx context.Context, env *Env, t netdev.QueueType) (int, error) {
	n, ok, err := env.Netdev.QueueCount(ctx, env.Ifindex, t)
	if err != nil {
		return 0, fmt.Errorf("netdev %s queue count: %w", t, err)
	}
	if !ok {
		return 0, Skipf("netdev reports no queues for %s", env.Ifname)
	}
	return n, nil
}

func sysfsCount(env *Env, t netdev.QueueType) (int, error) {
	n, err := env.Sysfs.Count(env.Ifname, t)
	if err != nil {
		return 0, fmt.Errorf("sysfs %s queue count: %w", t, err)
	}
	return n, nil
}

func checkStaticConsistency(ctx context.Context, env *Env) error {
	if err := requireNetdev(env); err != nil {
		return err
	}
	log := util.WithCheck("check_static_consistency", env.Ifname)

	for _, t := range netdev.QueueTypes {
		got, err := netdevCount(ctx, env, t)
		if err != nil {
			return err
		}
		want, err := sysfsCount(env, t)
		if err != nil {
			return err
		}
		log.Debugf("%s queues: netdev %d, sysfs %d", t, got, want)
		if err := expectEqual(t.String()+" queues", got, want); err != nil {
			return err
		}
	}
	return nil
}

func checkReconfigureRoundtrip(ctx context.Context, env *Env) error {
	if err := requireNetdev(env); err != nil {
		return err
	}
	log := util.WithCheck("check_reconfigure_roundtrip", env.Ifname)

	cur, err := netdevCount(ctx, env, netdev.QueueTypeRX)
	if err != nil {
		return err
	}

	total, err := env.Sysfs.Total(env.Ifname)
	if err != nil {
		return fmt.Errorf("sysfs queue total: %w", err)
	}
	if total == 1 || cur <= 1 {
		return Skipf("%s has a single queue", env.Ifname)
	}

	ch, err := env.Ethtool.Channels(ctx, env.Ifname)
	if err != nil {
		return err
	}

	// Restore once: the deferred action only covers exits before the
	// explicit restore below.
	restoreAttempted := false
	env.Defer(fmt.Sprintf("restore %d rx queues", cur), func(ctx context.Context) error {
		if restoreAttempted {
			return nil
		}
		return env.Ethtool.SetQueueCount(ctx, env.Ifname, cur, ch)
	})

	log.Infof("reducing rx queues %d -> %d", cur, cur-1)
	if err := env.Ethtool.SetQueueCount(ctx, env.Ifname, cur-1, ch); err != nil {
		return err
	}
	if err := expectCounts(ctx, env, cur-1); err != nil {
		return err
	}

	log.Infof("restoring rx queues %d -> %d", cur-1, cur)
	restoreAttempted = true
	if err := env.Ethtool.SetQueueCount(ctx, env.Ifname, cur, ch); err != nil {
		return &RestoreError{What: fmt.Sprintf("%d rx queues", cur), Err: err}
	}
	return expectCounts(ctx, env, cur)
}

// expectCounts asserts that netdev and sysfs both report want rx queues.
func expectCounts(ctx context.Context, env *Env, want int) error {
	got, ok, err := env.Netdev.QueueCount(ctx, env.Ifindex, netdev.QueueTypeRX)
	if err != nil {
		return fmt.Errorf("netdev rx queue count: %w", err)
	}
	if !ok {
		return Failf("netdev reports no queues after reconfiguration")
	}
	if err := expectEqual("netdev rx queues", got, want); err != nil {
		return err
	}
	n, err := sysfsCount(env, netdev.QueueTypeRX)
	if err != nil {
		return err
	}
	return expectEqual("sysfs rx queues", n, want)
}

func checkDownErrorBehavior(ctx context.Context, env *Env) error {
	if err := requireNetdev(env); err != nil {
		return err
	}
	log := util.WithCheck("check_down_error_behavior", env.Ifname)

	// Captured while up: a down device reports no NAPIs.
	napis, err := env.Netdev.NAPIs(ctx, env.Ifindex)
	if err != nil {
		return fmt.Errorf("netdev napi dump: %w", err)
	}
	log.Debugf("%d NAPI instances before link down", len(napis))

	if err := env.Link.SetDown(ctx, env.Ifname); err != nil {
		return err
	}
	env.Defer("link up "+env.Ifname, func(ctx context.Context) error {
		return env.Link.SetUp(ctx, env.Ifname)
	})

	util.WithQueue(env.Ifname, netdev.QueueTypeRX.String(), 0).Debug("queue-get while down")
	_, err = env.Netdev.QueueByID(ctx, env.Ifindex, netdev.QueueTypeRX, 0)
	if err := expectNotFound("queue-get rx 0", err); err != nil {
		return err
	}

	if len(napis) > 0 {
		_, err = env.Netdev.NAPIByID(ctx, napis[0].ID)
		if err := expectNotFound(fmt.Sprintf("napi-get %d", napis[0].ID), err); err != nil {
			return err
		}
	}
	return nil
}

// expectNotFound asserts that a by-id query failed with -ENOENT.
func expectNotFound(what string, err error) error {
	if err == nil {
		return Failf("%s succeeded while the link was down", what)
	}
	if !netdev.IsNotFound(err) {
		return Failf("%s: expected ENOENT, got %s", what, strings.TrimSpace(err.Error()))
	}
	return nil
}
