package netdev

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrNoReply is returned when a do-request completes without a reply message.
var ErrNoReply = errors.New("netdev: no reply message")

// RequestError is a kernel error returned for a netdev request.
type RequestError struct {
	Cmd  string
	Code int // negated errno, e.g. -ENOENT
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("netdev %s: %v (%d)", e.Cmd, e.Err, e.Code)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err carries a kernel -ENOENT reply.
func IsNotFound(err error) bool {
	var rerr *RequestError
	return errors.As(err, &rerr) && rerr.Code == -int(unix.ENOENT)
}

// requestError converts a netlink error into a *RequestError when it carries
// an errno; other errors are wrapped with the command name.
func requestError(cmd string, err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return &RequestError{Cmd: cmd, Code: -int(errno), Err: err}
	}
	return fmt.Errorf("netdev %s: %w", cmd, err)
}
