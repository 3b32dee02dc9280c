// Package ethtool reads and changes a device's channel (queue) configuration
// through the ethtool command line tool.
package ethtool

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/queuecheck/pkg/cmdexec"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// DefaultPath is the ethtool binary looked up in $PATH.
const DefaultPath = "ethtool"

// Channel parameters accepted by "ethtool -L".
const (
	ParamRx       = "rx"
	ParamTx       = "tx"
	ParamOther    = "other"
	ParamCombined = "combined"
)

// ChannelConfig is the output of "ethtool -l".
type ChannelConfig struct {
	RxCount       int
	TxCount       int
	OtherCount    int
	CombinedCount int

	RxMax       int
	TxMax       int
	OtherMax    int
	CombinedMax int
}

// ChannelParam returns the parameter that controls the rx queue count:
// "rx" for drivers with dedicated rx channels, "combined" otherwise.
func ChannelParam(cur *ChannelConfig) string {
	if cur.CombinedCount == 0 {
		return ParamRx
	}
	return ParamCombined
}

// Tool runs ethtool.
type Tool struct {
	Path   string
	Runner cmdexec.Runner
}

// New returns a Tool that runs the binary at path through exec. An empty
// path means DefaultPath; a nil exec uses cmdexec.DefaultTimeout.
func New(path string, exec *cmdexec.Exec) *Tool {
	if path == "" {
		path = DefaultPath
	}
	if exec == nil {
		exec = &cmdexec.Exec{}
	}
	return &Tool{Path: path, Runner: exec}
}

// Channels queries the current and maximum channel counts of ifname.
func (t *Tool) Channels(ctx context.Context, ifname string) (*ChannelConfig, error) {
	out, err := t.Runner.Run(ctx, t.Path, "--json", "-l", ifname)
	if err != nil {
		return nil, fmt.Errorf("querying channels of %s: %w", ifname, err)
	}
	cfg, err := parseChannels(out)
	if err != nil {
		return nil, fmt.Errorf("'%s --json -l %s': %w", t.Path, ifname, err)
	}
	util.WithInterface(ifname).Debugf("channels: %+v", *cfg)
	return cfg, nil
}

// SetQueueCount sets the rx queue count of ifname to count, using the
// parameter ChannelParam picks for cur. The result is not verified.
func (t *Tool) SetQueueCount(ctx context.Context, ifname string, count int, cur *ChannelConfig) error {
	return t.SetChannels(ctx, ifname, ChannelParam(cur), count)
}

// SetChannels runs "ethtool -L <ifname> <param> <count>".
func (t *Tool) SetChannels(ctx context.Context, ifname, param string, count int) error {
	if count < 1 {
		return util.NewValidationError(fmt.Sprintf("%s channel count must be at least 1, got %d", param, count))
	}
	switch param {
	case ParamRx, ParamTx, ParamOther, ParamCombined:
	default:
		return util.NewValidationError(fmt.Sprintf("unknown channel parameter %q", param))
	}

	util.WithInterface(ifname).Infof("setting %s channels to %d", param, count)
	if _, err := t.Runner.Run(ctx, t.Path, "-L", ifname, param, strconv.Itoa(count)); err != nil {
		return fmt.Errorf("setting %s channels of %s to %d: %w", param, ifname, count, err)
	}
	return nil
}

func parseChannels(bs []byte) (*ChannelConfig, error) {
	if len(bs) == 0 {
		return nil, fmt.Errorf("no output")
	}
	if !gjson.ValidBytes(bs) {
		return nil, fmt.Errorf("invalid JSON output")
	}

	res := gjson.ParseBytes(bs)
	dev := res
	if res.IsArray() {
		dev = res.Get("0")
	}
	if !dev.Get("ifname").Exists() {
		return nil, fmt.Errorf("unexpected data: no channel record")
	}

	// Parameters a driver does not support are omitted.
	return &ChannelConfig{
		RxCount:       int(dev.Get("rx-count").Int()),
		TxCount:       int(dev.Get("tx-count").Int()),
		OtherCount:    int(dev.Get("other-count").Int()),
		CombinedCount: int(dev.Get("combined-count").Int()),
		RxMax:         int(dev.Get("rx-max").Int()),
		TxMax:         int(dev.Get("tx-max").Int()),
		OtherMax:      int(dev.Get("other-max").Int()),
		CombinedMax:   int(dev.Get("combined-max").Int()),
	}, nil
}
