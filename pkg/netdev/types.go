// Package netdev is a client for the kernel "netdev" generic netlink family,
// which reports a device's queues, NAPI instances and XDP capabilities.
package netdev

import (
	"fmt"
	"strings"
)

// FamilyName is the generic netlink family name registered by the kernel.
const FamilyName = "netdev"

// Commands of the netdev family.
const (
	cmdDevGet   = 1
	cmdQueueGet = 10
	cmdNAPIGet  = 11
)

// Device attributes.
const (
	attrDevIfindex              = 1
	attrDevXDPFeatures          = 3
	attrDevXDPZCMaxSegs         = 4
	attrDevXDPRxMetadataFeature = 5
	attrDevXSKFeatures          = 6
)

// NAPI attributes.
const (
	attrNAPIIfindex = 1
	attrNAPIID      = 2
	attrNAPIIRQ     = 3
	attrNAPIPID     = 4
)

// Queue attributes.
const (
	attrQueueID      = 1
	attrQueueIfindex = 2
	attrQueueType    = 3
	attrQueueNAPIID  = 4
)

// QueueType is the direction of a device queue.
type QueueType uint32

const (
	QueueTypeRX QueueType = 0
	QueueTypeTX QueueType = 1
)

// QueueTypes lists every queue direction, rx first.
var QueueTypes = []QueueType{QueueTypeRX, QueueTypeTX}

func (t QueueType) String() string {
	switch t {
	case QueueTypeRX:
		return "rx"
	case QueueTypeTX:
		return "tx"
	}
	return fmt.Sprintf("QueueType(%d)", uint32(t))
}

// ParseQueueType converts "rx" or "tx" to a QueueType.
func ParseQueueType(s string) (QueueType, error) {
	switch strings.ToLower(s) {
	case "rx":
		return QueueTypeRX, nil
	case "tx":
		return QueueTypeTX, nil
	}
	return 0, fmt.Errorf("unknown queue type %q", s)
}

// Queue is one queue record reported by queue-get.
type Queue struct {
	ID      uint32
	Type    QueueType
	Ifindex uint32
	NapiID  uint32 // 0 when the queue is not serviced by a NAPI instance
}

// NAPI is one NAPI instance reported by napi-get.
type NAPI struct {
	ID      uint32
	Ifindex uint32
	IRQ     int // -1 when no IRQ is associated
	PID     int // 0 unless the instance runs in threaded mode
}

// Device is the dev-get record of a network device.
type Device struct {
	Ifindex               uint32
	XDPFeatures           uint64
	XDPZCMaxSegs          uint32
	XDPRxMetadataFeatures uint64
	XSKFeatures           uint64
}

type featureBit struct {
	bit  uint64
	name string
}

var xdpFeatureNames = []featureBit{
	{1 << 0, "basic"},
	{1 << 1, "redirect"},
	{1 << 2, "ndo-xmit"},
	{1 << 3, "xsk-zerocopy"},
	{1 << 4, "hw-offload"},
	{1 << 5, "rx-sg"},
	{1 << 6, "ndo-xmit-sg"},
}

var xdpRxMetadataNames = []featureBit{
	{1 << 0, "timestamp"},
	{1 << 1, "hash"},
	{1 << 2, "vlan-tag"},
}

var xskFeatureNames = []featureBit{
	{1 << 0, "tx-timestamp"},
	{1 << 1, "tx-checksum"},
}

func featureList(mask uint64, names []featureBit) []string {
	var out []string
	for _, f := range names {
		if mask&f.bit != 0 {
			out = append(out, f.name)
			mask &^= f.bit
		}
	}
	if mask != 0 {
		out = append(out, fmt.Sprintf("0x%x", mask))
	}
	return out
}

// XDPFeatureNames returns the names of the XDP feature bits set on the device.
func (d *Device) XDPFeatureNames() []string {
	return featureList(d.XDPFeatures, xdpFeatureNames)
}

// XDPRxMetadataNames returns the names of the XDP rx metadata bits.
func (d *Device) XDPRxMetadataNames() []string {
	return featureList(d.XDPRxMetadataFeatures, xdpRxMetadataNames)
}

// XSKFeatureNames returns the names of the AF_XDP socket feature bits.
func (d *Device) XSKFeatureNames() []string {
	return featureList(d.XSKFeatures, xskFeatureNames)
}
