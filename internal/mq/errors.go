package mq

import "errors"

var (
	// ErrEmptyMessage is returned by NewMessage for a zero-length header
	// (spec.md §9 Open Question 3: zero-byte enqueue is a usage error, not a
	// silently-accepted empty message).
	ErrEmptyMessage = errors.New("mq: message header must not be empty")
	// ErrInvalidConfig is returned by New for a watermark configuration that
	// can never satisfy lo < hi <= maxSize.
	ErrInvalidConfig = errors.New("mq: invalid watermark configuration")
)

// ErrorCodeQueueFull is the reason code passed to PeerHooks.OnFatalOverflow
// when a message of any priority other than DATA cannot fit even after the
// Drop Engine has evicted everything strictly less important. Named after the original
// protocol's "queue full" bye code; this package treats it as an opaque
// integer, not a protocol constant.
const ErrorCodeQueueFull = 502
