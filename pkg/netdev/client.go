package netdev

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"

	"github.com/newtron-network/queuecheck/pkg/util"
)

// Client issues netdev family requests over a generic netlink socket.
// A Client is not safe for concurrent use.
type Client struct {
	c      *genetlink.Conn
	family genetlink.Family
}

// Dial opens a generic netlink socket and resolves the netdev family.
// If the running kernel does not register the family the returned error
// wraps util.ErrUnsupported.
func Dial() (*Client, error) {
	c, err := genetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("dialing generic netlink: %w", err)
	}
	client, err := NewClient(c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return client, nil
}

// NewClient resolves the netdev family on an existing connection. The
// Client takes ownership of c.
func NewClient(c *genetlink.Conn) (*Client, error) {
	f, err := c.GetFamily(FamilyName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: generic netlink family %q not registered", util.ErrUnsupported, FamilyName)
		}
		return nil, fmt.Errorf("resolving generic netlink family %q: %w", FamilyName, err)
	}
	util.Debugf("netdev family id %d version %d", f.ID, f.Version)
	return &Client{c: c, family: f}, nil
}

// Close closes the underlying socket.
func (c *Client) Close() error {
	return c.c.Close()
}

// Queues dumps every queue record of the device with the given ifindex.
// A device that is down reports no queues.
func (c *Client) Queues(ctx context.Context, ifindex uint32) ([]Queue, error) {
	msgs, err := c.execute(ctx, "queue-get", cmdQueueGet, netlink.Request|netlink.Dump, func(ae *netlink.AttributeEncoder) {
		ae.Uint32(attrQueueIfindex, ifindex)
	})
	if err != nil {
		return nil, err
	}

	queues := make([]Queue, 0, len(msgs))
	for _, m := range msgs {
		q, err := parseQueue(m.Data)
		if err != nil {
			return nil, fmt.Errorf("netdev queue-get: %w", err)
		}
		if q.Ifindex != ifindex {
			continue
		}
		queues = append(queues, q)
	}
	return queues, nil
}

// QueueCount returns the number of queues of type t. ok is false when the
// dump returned no records at all, which is how a device without netdev
// queue reporting (or a device that is down) looks from user space.
func (c *Client) QueueCount(ctx context.Context, ifindex uint32, t QueueType) (n int, ok bool, err error) {
	queues, err := c.Queues(ctx, ifindex)
	if err != nil {
		return 0, false, err
	}
	if len(queues) == 0 {
		return 0, false, nil
	}
	for _, q := range queues {
		if q.Type == t {
			n++
		}
	}
	return n, true, nil
}

// NAPIs dumps the NAPI instances of the device. An empty result is valid.
func (c *Client) NAPIs(ctx context.Context, ifindex uint32) ([]NAPI, error) {
	msgs, err := c.execute(ctx, "napi-get", cmdNAPIGet, netlink.Request|netlink.Dump, func(ae *netlink.AttributeEncoder) {
		ae.Uint32(attrNAPIIfindex, ifindex)
	})
	if err != nil {
		return nil, err
	}

	napis := make([]NAPI, 0, len(msgs))
	for _, m := range msgs {
		n, err := parseNAPI(m.Data)
		if err != nil {
			return nil, fmt.Errorf("netdev napi-get: %w", err)
		}
		if n.Ifindex != ifindex {
			continue
		}
		napis = append(napis, n)
	}
	return napis, nil
}

// QueueByID fetches a single queue. Kernel errors come back as *RequestError.
func (c *Client) QueueByID(ctx context.Context, ifindex uint32, t QueueType, id uint32) (*Queue, error) {
	msgs, err := c.execute(ctx, "queue-get", cmdQueueGet, netlink.Request, func(ae *netlink.AttributeEncoder) {
		ae.Uint32(attrQueueIfindex, ifindex)
		ae.Uint32(attrQueueType, uint32(t))
		ae.Uint32(attrQueueID, id)
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("queue-get %s %d on ifindex %d: %w", t, id, ifindex, ErrNoReply)
	}

	q, err := parseQueue(msgs[0].Data)
	if err != nil {
		return nil, fmt.Errorf("netdev queue-get: %w", err)
	}
	return &q, nil
}

// NAPIByID fetches a single NAPI instance. Kernel errors come back as
// *RequestError.
func (c *Client) NAPIByID(ctx context.Context, id uint32) (*NAPI, error) {
	msgs, err := c.execute(ctx, "napi-get", cmdNAPIGet, netlink.Request, func(ae *netlink.AttributeEncoder) {
		ae.Uint32(attrNAPIID, id)
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("napi-get %d: %w", id, ErrNoReply)
	}

	n, err := parseNAPI(msgs[0].Data)
	if err != nil {
		return nil, fmt.Errorf("netdev napi-get: %w", err)
	}
	return &n, nil
}

// Device fetches the dev-get record of a device.
func (c *Client) Device(ctx context.Context, ifindex uint32) (*Device, error) {
	msgs, err := c.execute(ctx, "dev-get", cmdDevGet, netlink.Request, func(ae *netlink.AttributeEncoder) {
		ae.Uint32(attrDevIfindex, ifindex)
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("dev-get %d: %w", ifindex, ErrNoReply)
	}

	d, err := parseDevice(msgs[0].Data)
	if err != nil {
		return nil, fmt.Errorf("netdev dev-get: %w", err)
	}
	return &d, nil
}

func (c *Client) execute(ctx context.Context, name string, cmd uint8, flags netlink.HeaderFlags, encode func(ae *netlink.AttributeEncoder)) ([]genetlink.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ae := netlink.NewAttributeEncoder()
	encode(ae)
	b, err := ae.Encode()
	if err != nil {
		return nil, fmt.Errorf("netdev %s: encoding attributes: %w", name, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.c.SetDeadline(deadline); err != nil {
			util.Debugf("netdev %s: socket deadline not applied: %v", name, err)
		} else {
			defer func() { _ = c.c.SetDeadline(time.Time{}) }()
		}
	}

	req := genetlink.Message{
		Header: genetlink.Header{
			Command: cmd,
			Version: c.family.Version,
		},
		Data: b,
	}

	msgs, err := c.c.Execute(req, c.family.ID, flags)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("netdev %s: %w", name, ctxErr)
		}
		return nil, requestError(name, err)
	}
	util.Debugf("netdev %s: %d messages", name, len(msgs))
	return msgs, nil
}

func parseQueue(b []byte) (Queue, error) {
	ad, err := netlink.NewAttributeDecoder(b)
	if err != nil {
		return Queue{}, err
	}

	var q Queue
	for ad.Next() {
		switch ad.Type() {
		case attrQueueID:
			q.ID = ad.Uint32()
		case attrQueueIfindex:
			q.Ifindex = ad.Uint32()
		case attrQueueType:
			q.Type = QueueType(ad.Uint32())
		case attrQueueNAPIID:
			q.NapiID = ad.Uint32()
		}
	}
	return q, ad.Err()
}

func parseNAPI(b []byte) (NAPI, error) {
	ad, err := netlink.NewAttributeDecoder(b)
	if err != nil {
		return NAPI{}, err
	}

	n := NAPI{IRQ: -1}
	for ad.Next() {
		switch ad.Type() {
		case attrNAPIID:
			n.ID = ad.Uint32()
		case attrNAPIIfindex:
			n.Ifindex = ad.Uint32()
		case attrNAPIIRQ:
			n.IRQ = int(ad.Uint32())
		case attrNAPIPID:
			n.PID = int(ad.Uint32())
		}
	}
	return n, ad.Err()
}

func parseDevice(b []byte) (Device, error) {
	ad, err := netlink.NewAttributeDecoder(b)
	if err != nil {
		return Device{}, err
	}

	var d Device
	for ad.Next() {
		switch ad.Type() {
		case attrDevIfindex:
			d.Ifindex = ad.Uint32()
		case attrDevXDPFeatures:
			d.XDPFeatures = ad.Uint64()
		case attrDevXDPZCMaxSegs:
			d.XDPZCMaxSegs = ad.Uint32()
		case attrDevXDPRxMetadataFeature:
			d.XDPRxMetadataFeatures = ad.Uint64()
		case attrDevXSKFeatures:
			d.XSKFeatures = ad.Uint64()
		}
	}
	return d, ad.Err()
}
