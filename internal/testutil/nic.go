//go:build e2e

package testutil

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/newtron-network/queuecheck/pkg/fixture"
	"github.com/newtron-network/queuecheck/pkg/netdev"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// Interface returns the NIC under test from QUEUECHECK_TEST_IFNAME, or
// skips the test when it is unset.
func Interface(t *testing.T) string {
	t.Helper()
	ifname := os.Getenv("QUEUECHECK_TEST_IFNAME")
	if ifname == "" {
		t.Skip("no test interface: set QUEUECHECK_TEST_IFNAME")
	}
	return ifname
}

// SkipIfNotRoot skips tests that change device state.
func SkipIfNotRoot(t *testing.T) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
}

// SkipIfNoNetdev skips the test when the kernel has no netdev family.
func SkipIfNoNetdev(t *testing.T) {
	t.Helper()
	c, err := netdev.Dial()
	if errors.Is(err, util.ErrUnsupported) {
		t.Skipf("netdev family unavailable: %v", err)
	}
	if err != nil {
		t.Fatalf("dialing netdev: %v", err)
	}
	c.Close()
}

// Acquire acquires a fixture on the test interface and releases it when the
// test ends.
func Acquire(t *testing.T) *fixture.Fixture {
	t.Helper()
	ifname := Interface(t)

	f, err := fixture.Acquire(context.Background(), fixture.Config{Ifname: ifname})
	if err != nil {
		t.Fatalf("acquiring %s: %v", ifname, err)
	}
	t.Cleanup(func() {
		if err := f.Release(context.Background()); err != nil {
			t.Errorf("releasing %s: %v", ifname, err)
		}
	})
	return f
}
