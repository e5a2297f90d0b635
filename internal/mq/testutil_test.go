package mq

import (
	"encoding/binary"
	"time"

	"github.com/netmesh/peerq/internal/clock"
)

// header builds a big-endian uint64 header. Comparing these byte-wise with
// ByteOrderComparator is equivalent to comparing the numbers, which is what
// the test suite relies on for deterministic ordering assertions.
func header(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func mustMessage(t interface{ Helper() }, priority Priority, size int, droppable bool, seq uint64) *Message {
	t.Helper()
	m, err := NewMessage(priority, header(seq), droppable)
	if err != nil {
		panic(err)
	}
	// NewMessage derives size from the header length (8 bytes); pad/extend
	// the accounted size to whatever the scenario calls for by overwriting
	// it directly -- tests need arbitrary sizes, not 8-byte messages.
	m.size = size
	return m
}

// fakeHooks is a PeerHooks implementation that records every call for
// assertions, and supplies fixed SWIFT grace/period values.
type fakeHooks struct {
	enterWarn, leaveWarn           int
	enterFlowc, leaveFlowc         int
	enterSwift                     int
	serviceNeeded                  []bool
	dropsRecorded                  int
	fatalOverflows                 []struct{ code, max int }
	graceSeconds, periodSeconds    int
}

func newFakeHooks() *fakeHooks {
	return &fakeHooks{graceSeconds: 5, periodSeconds: 2}
}

func (h *fakeHooks) OnTxEnterWarn()  { h.enterWarn++ }
func (h *fakeHooks) OnTxLeaveWarn()  { h.leaveWarn++ }
func (h *fakeHooks) OnTxEnterFlowc() { h.enterFlowc++ }
func (h *fakeHooks) OnTxLeaveFlowc() { h.leaveFlowc++ }
func (h *fakeHooks) OnTxEnterSwift() { h.enterSwift++ }
func (h *fakeHooks) OnTxServiceNeeded(needed bool) {
	h.serviceNeeded = append(h.serviceNeeded, needed)
}
func (h *fakeHooks) OnTxDropRecorded(n int) { h.dropsRecorded += n }
func (h *fakeHooks) OnFatalOverflow(code, max int) {
	h.fatalOverflows = append(h.fatalOverflows, struct{ code, max int }{code, max})
}
func (h *fakeHooks) FlowcSwiftGraceSeconds() int  { return h.graceSeconds }
func (h *fakeHooks) FlowcSwiftPeriodSeconds() int { return h.periodSeconds }

// fakeTX is a minimal TXDriver recording enable/disable transitions.
type fakeTX struct {
	freed, enabled, disabled int
	bytesWritten             int
}

func (d *fakeTX) Free()            { d.freed++ }
func (d *fakeTX) ServiceEnable()   { d.enabled++ }
func (d *fakeTX) ServiceDisable()  { d.disabled++ }
func (d *fakeTX) BytesWrittenSinceLastQuery() int {
	n := d.bytesWritten
	d.bytesWritten = 0
	return n
}

func newTestQueue(t interface{ Helper() }, maxSize, hi, lo int, opts ...Option) (*Queue, *fakeHooks, *fakeTX, *clock.Fake) {
	t.Helper()
	hooks := newFakeHooks()
	tx := &fakeTX{}
	fc := clock.NewFake(time.Unix(0, 0))
	allOpts := append([]Option{WithClock(fc)}, opts...)
	q, err := New(tx, hooks, Config{MaxSize: maxSize, HiWatermark: hi, LoWatermark: lo}, allOpts...)
	if err != nil {
		panic(err)
	}
	return q, hooks, tx, fc
}

// drainOne fully transmits the current tail message's remaining bytes.
func drainOne(q *Queue) {
	tail := q.store.Tail()
	if tail == nil {
		return
	}
	q.NotifyBytesWritten(tail.msg.Remaining())
}

// transmissionOrder returns message headers in tail-to-head order (the
// order the lower TX driver would actually observe them).
func transmissionOrder(q *Queue) [][]byte {
	var out [][]byte
	for n := q.store.Tail(); n != nil; n = n.prev {
		out = append(out, n.msg.header)
	}
	return out
}
