package fixture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/queuecheck/pkg/cmdexec"
	"github.com/newtron-network/queuecheck/pkg/link"
	"github.com/newtron-network/queuecheck/pkg/netdev"
	"github.com/newtron-network/queuecheck/pkg/util"
)

func TestScopeLIFO(t *testing.T) {
	s := NewScope()
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		s.Defer(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	assert.Equal(t, 3, s.Len())

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.Equal(t, 0, s.Len())
}

func TestScopeRunsAllOnFailure(t *testing.T) {
	s := NewScope()
	var ran []string
	errRestore := errors.New("restore failed")
	errUp := errors.New("link up failed")

	s.Defer("restore channels", func(context.Context) error {
		ran = append(ran, "restore channels")
		return errRestore
	})
	s.Defer("noop", func(context.Context) error {
		ran = append(ran, "noop")
		return nil
	})
	s.Defer("link up", func(context.Context) error {
		ran = append(ran, "link up")
		return errUp
	})

	err := s.Close(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"link up", "noop", "restore channels"}, ran)
	assert.ErrorIs(t, err, errRestore)
	assert.ErrorIs(t, err, errUp)

	var aerr *ActionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "link up", aerr.Name)
}

func TestScopeExactlyOnce(t *testing.T) {
	s := NewScope()
	calls := 0
	s.Defer("count", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestScopeDeferAfterClose(t *testing.T) {
	s := NewScope()
	require.NoError(t, s.Close(context.Background()))

	ran := false
	s.Defer("late", func(context.Context) error {
		ran = true
		return nil
	})
	assert.True(t, ran)
}

func TestScopeIgnoresCancellation(t *testing.T) {
	s := NewScope()
	var ctxErr error
	s.Defer("restore", func(ctx context.Context) error {
		ctxErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Close(ctx))
	assert.NoError(t, ctxErr)
}

type fakeLink struct {
	info *link.Info
	err  error
}

func (f *fakeLink) Lookup(context.Context, string) (*link.Info, error) { return f.info, f.err }
func (f *fakeLink) SetUp(context.Context, string) error                { return nil }
func (f *fakeLink) SetDown(context.Context, string) error              { return nil }

func stubAcquire(t *testing.T, lc link.Controller, dial func() (*netdev.Client, error)) {
	t.Helper()
	origDial, origLink, origEuid := dialNetdev, newLink, geteuid
	t.Cleanup(func() {
		dialNetdev, newLink, geteuid = origDial, origLink, origEuid
	})
	dialNetdev = dial
	newLink = func(string, cmdexec.Runner) (link.Controller, error) { return lc, nil }
	geteuid = func() int { return 0 }
}

func TestAcquireValidation(t *testing.T) {
	_, err := Acquire(context.Background(), Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrValidationFailed))

	_, err = Acquire(context.Background(), Config{Ifname: "eth0", Timeout: -time.Second})
	assert.True(t, errors.Is(err, util.ErrValidationFailed))
}

func TestAcquireUnknownInterface(t *testing.T) {
	stubAcquire(t, &fakeLink{err: util.ErrNotFound}, func() (*netdev.Client, error) {
		t.Fatal("netdev should not be dialed for an unknown interface")
		return nil, nil
	})

	_, err := Acquire(context.Background(), Config{Ifname: "eth9"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestAcquireWithoutNetdevFamily(t *testing.T) {
	unsupported := errors.New("family missing")
	stubAcquire(t, &fakeLink{info: &link.Info{Name: "eth0", Index: 4}}, func() (*netdev.Client, error) {
		return nil, errors.Join(util.ErrUnsupported, unsupported)
	})

	f, err := Acquire(context.Background(), Config{
		Ifname:      "eth0",
		EthtoolPath: "/nonexistent/ethtool",
		SysfsRoot:   t.TempDir(),
	})
	require.NoError(t, err)
	defer f.Release(context.Background())

	assert.Equal(t, "eth0", f.Ifname)
	assert.Equal(t, 4, f.Ifindex)
	assert.Nil(t, f.Netdev)
	assert.ErrorIs(t, f.NetdevErr, util.ErrUnsupported)
	assert.Nil(t, f.Channels)
	assert.True(t, f.Privileged)
	assert.NotNil(t, f.Sysfs)
	assert.NotNil(t, f.Ethtool)
}

func TestAcquireNetdevDialError(t *testing.T) {
	stubAcquire(t, &fakeLink{info: &link.Info{Name: "eth0", Index: 4}}, func() (*netdev.Client, error) {
		return nil, errors.New("socket: permission denied")
	})

	_, err := Acquire(context.Background(), Config{Ifname: "eth0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestReleaseRunsFixtureActions(t *testing.T) {
	f := New("eth0", 2)
	var order []string
	f.Defer("a", func(context.Context) error { order = append(order, "a"); return nil })
	f.Defer("b", func(context.Context) error { order = append(order, "b"); return errors.New("boom") })

	err := f.Release(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"b", "a"}, order)
	assert.NoError(t, f.Release(context.Background()))
}
