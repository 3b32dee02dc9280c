// Package sysfs reads the per-device queue layout and link attributes that
// the kernel exposes under /sys/class/net.
package sysfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/newtron-network/queuecheck/pkg/netdev"
	"github.com/newtron-network/queuecheck/pkg/util"
)

// DefaultRoot is where sysfs is mounted.
const DefaultRoot = "/sys"

// Inspector answers queue and link questions from a sysfs tree.
type Inspector struct {
	fsys fs.FS
}

// New returns an Inspector over the host's sysfs.
func New() *Inspector {
	return NewFS(os.DirFS(DefaultRoot))
}

// NewFS returns an Inspector over fsys, which must be laid out like /sys.
func NewFS(fsys fs.FS) *Inspector {
	return &Inspector{fsys: fsys}
}

func devDir(ifname string) string {
	return path.Join("class/net", ifname)
}

func (i *Inspector) checkDevice(ifname string) error {
	if _, err := fs.Stat(i.fsys, devDir(ifname)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("interface %s: %w", ifname, util.ErrNotFound)
		}
		return fmt.Errorf("interface %s: %w", ifname, err)
	}
	return nil
}

// QueueNames returns the queue directory names of type t ("rx-0", "rx-1",
// ...) in numeric order.
func (i *Inspector) QueueNames(ifname string, t netdev.QueueType) ([]string, error) {
	if err := i.checkDevice(ifname); err != nil {
		return nil, err
	}

	pattern := path.Join(devDir(ifname), "queues", t.String()+"-*")
	matches, err := doublestar.Glob(i.fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("listing %s queues of %s: %w", t, ifname, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, path.Base(m))
	}
	sort.Slice(names, func(a, b int) bool {
		return queueIndex(names[a]) < queueIndex(names[b])
	})
	return names, nil
}

func queueIndex(name string) int {
	_, idx, _ := strings.Cut(name, "-")
	n, err := strconv.Atoi(idx)
	if err != nil {
		return -1
	}
	return n
}

// Count returns the number of queue directories of type t. A device without
// a queues directory has zero queues.
func (i *Inspector) Count(ifname string, t netdev.QueueType) (int, error) {
	names, err := i.QueueNames(ifname, t)
	if err != nil {
		return 0, err
	}
	util.WithInterface(ifname).Debugf("sysfs %s queues: %d", t, len(names))
	return len(names), nil
}

// Total returns the combined rx and tx queue count.
func (i *Inspector) Total(ifname string) (int, error) {
	var total int
	for _, t := range netdev.QueueTypes {
		n, err := i.Count(ifname, t)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// OperState returns the RFC 2863 operational state ("up", "down", ...).
func (i *Inspector) OperState(ifname string) (string, error) {
	b, err := fs.ReadFile(i.fsys, path.Join(devDir(ifname), "operstate"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("interface %s: %w", ifname, util.ErrNotFound)
		}
		return "", fmt.Errorf("reading operstate of %s: %w", ifname, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Carrier reports whether the device detects a link. The kernel refuses to
// report carrier for a device that is administratively down; that reads as
// no carrier.
func (i *Inspector) Carrier(ifname string) (bool, error) {
	if err := i.checkDevice(ifname); err != nil {
		return false, err
	}
	b, err := fs.ReadFile(i.fsys, path.Join(devDir(ifname), "carrier"))
	if err != nil {
		util.WithInterface(ifname).Debugf("carrier unreadable: %v", err)
		return false, nil
	}
	return strings.TrimSpace(string(b)) == "1", nil
}
