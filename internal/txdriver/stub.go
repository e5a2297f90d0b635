// Package txdriver provides a minimal TXDriver implementation: the piece
// spec.md explicitly puts out of scope (socket writing, compression, wire
// framing) reduced to just enough bookkeeping for this repo's admin surface
// and tests to observe queue-to-wire handoff without a real transport.
package txdriver

import (
	"log/slog"
	"sync/atomic"
)

// Stub is a TXDriver that does no actual I/O. Production deployments are
// expected to supply their own driver backed by a real socket; this one
// exists so the rest of the module (peer, registry, the admin HTTP surface)
// has something concrete to exercise in tests and in the bundled demo
// command.
type Stub struct {
	logger   *slog.Logger
	label    string
	written  atomic.Int64
	enabled  atomic.Bool
	freed    atomic.Bool
}

// New builds a Stub. label identifies the driver in log lines (typically the
// peer ID).
func New(label string, logger *slog.Logger) *Stub {
	return &Stub{label: label, logger: logger}
}

func (d *Stub) Free() {
	d.freed.Store(true)
	d.enabled.Store(false)
	if d.logger != nil {
		d.logger.Debug("tx driver freed", "peer", d.label)
	}
}

func (d *Stub) ServiceEnable() {
	d.enabled.Store(true)
}

func (d *Stub) ServiceDisable() {
	d.enabled.Store(false)
}

// BytesWrittenSinceLastQuery lets a poll-based caller read-and-reset the
// write counter. The mq.Queue itself never
// calls this -- see DESIGN.md's TXDriver-surface note.
func (d *Stub) BytesWrittenSinceLastQuery() int {
	return int(d.written.Swap(0))
}

// NotifyWritten simulates the lower transport flushing n bytes by adding n
// to the counter BytesWrittenSinceLastQuery reads. It does not call into any
// Peer or Queue.
func (d *Stub) NotifyWritten(n int) {
	d.written.Add(int64(n))
}

func (d *Stub) Enabled() bool { return d.enabled.Load() }
func (d *Stub) Freed() bool   { return d.freed.Load() }
