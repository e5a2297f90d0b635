package mq

import (
	"fmt"
	"log/slog"

	"github.com/netmesh/peerq/internal/clock"
)

// TXDriver is the minimal downstream handle the Queue talks to: whatever
// actually owns the socket, compressor, and write scheduling for this peer
// (all explicitly out of scope here, spec.md §1 Non-goals). The Queue only
// ever needs to tell it "you have something to send" / "you don't anymore"
// and to release it on Free. Flushed bytes are pushed into the Queue through
// NotifyBytesWritten; the Queue never reads them from the driver.
type TXDriver interface {
	Free()
	ServiceEnable()
	ServiceDisable()
}

// PeerHooks is the set of synchronous notifications the Queue fires into its
// owning peer. Hook methods must not call back into the Queue that invoked
// them (spec.md §5): they may only record state or flip flags the peer's own
// command loop reads afterward.
type PeerHooks interface {
	OnTxEnterWarn()
	OnTxLeaveWarn()
	OnTxEnterFlowc()
	OnTxLeaveFlowc()
	OnTxEnterSwift()
	OnTxServiceNeeded(needed bool)
	OnTxDropRecorded(n int)
	OnFatalOverflow(reasonCode, maxSize int)
	FlowcSwiftGraceSeconds() int
	FlowcSwiftPeriodSeconds() int
}

// Config bounds the queue's byte budget and watermark hysteresis band
// (spec.md §3 Q: max_size, hi_watermark, lo_watermark).
type Config struct {
	MaxSize       int
	HiWatermark   int
	LoWatermark   int
	SwiftMaxSteps int // 0 uses the default of 32.
}

// Stats is a point-in-time snapshot for observability (the HTTP diagnostics
// surface, the registry's idle sweep).
type Stats struct {
	Bytes            int
	Count            int
	Zone             Zone
	Swift            bool
	MaxSize, Hi, Lo  int
}

// Queue is the per-peer outbound Message Queue (spec.md §2 C7). It is NOT
// safe for concurrent use: every exported method must run on a single
// goroutine at a time. Callers that need concurrent access (this repo's
// internal/peer.Peer) must funnel calls through their own single-consumer
// command channel; see SPEC_FULL.md §5.
type Queue struct {
	store list
	index *sortIndex
	cmp   comparator

	maxSize, hi, lo int
	bytes           int
	zone            Zone

	swift                 bool
	swiftTimer            clock.Timer
	swiftElapsedMs        int
	lastSize              int
	bytesSinceCheckpoint  int
	swiftMaxSteps         int
	refBuilder            SwiftReferenceBuilder

	shutdown bool
	debug    bool

	tx     TXDriver
	hooks  PeerHooks
	clock  clock.Clock
	logger *slog.Logger
}

// Option customizes a Queue at construction time.
type Option func(*Queue)

func WithClock(c clock.Clock) Option { return func(q *Queue) { q.clock = c } }

func WithHeaderComparator(hc HeaderComparator) Option {
	return func(q *Queue) { q.cmp = comparator{header: hc} }
}

func WithSwiftReferenceBuilder(b SwiftReferenceBuilder) Option {
	return func(q *Queue) { q.refBuilder = b }
}

func WithLogger(l *slog.Logger) Option { return func(q *Queue) { q.logger = l } }

func WithDebug(enabled bool) Option { return func(q *Queue) { q.debug = enabled } }

// New builds a Queue. hooks and tx must both be non-nil; the Queue never
// checks that itself beyond letting the first call into them panic, matching
// spec.md's stance that a nil hook set is a programming error, not a runtime
// condition to recover from.
func New(tx TXDriver, hooks PeerHooks, cfg Config, opts ...Option) (*Queue, error) {
	if cfg.LoWatermark <= 0 || cfg.HiWatermark <= cfg.LoWatermark || cfg.MaxSize < cfg.HiWatermark {
		return nil, fmt.Errorf("%w: lo=%d hi=%d max=%d", ErrInvalidConfig, cfg.LoWatermark, cfg.HiWatermark, cfg.MaxSize)
	}
	q := &Queue{
		maxSize:       cfg.MaxSize,
		hi:            cfg.HiWatermark,
		lo:            cfg.LoWatermark,
		swiftMaxSteps: cfg.SwiftMaxSteps,
		tx:            tx,
		hooks:         hooks,
		clock:         clock.Real(),
		cmp:           comparator{header: ByteOrderComparator{}},
		refBuilder:    defaultSwiftReferenceBuilder{},
		debug:         defaultDebug,
	}
	if q.swiftMaxSteps <= 0 {
		q.swiftMaxSteps = 32
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue implements spec.md §4.3. It never returns an error: every outcome
// short of a fatal overflow is handled locally and surfaced only through
// PeerHooks (spec.md §7's "recover locally" propagation policy).
func (q *Queue) Enqueue(m *Message) {
	if m == nil {
		return
	}
	if q.shutdown {
		return
	}
	if m.size <= 0 {
		q.invariantViolation("enqueue of non-positive size message")
		return
	}

	makeRoomCalled := false
	var hint *int

	if q.zone == ZoneFlowC && m.priority == PriorityData && m.droppable {
		makeRoomCalled = true
		ok, h := q.makeRoom(referenceFromMessage(m), m.size)
		hint = h
		if !ok {
			q.hooks.OnTxDropRecorded(1)
			q.updateZone()
			return
		}
	}

	needed := q.bytes + m.size - q.maxSize
	if needed > 0 {
		madeRoom := false
		if !makeRoomCalled {
			var h *int
			madeRoom, h = q.makeRoom(referenceFromMessage(m), needed)
			hint = h
		}
		if makeRoomCalled || !madeRoom {
			if m.priority == PriorityData {
				q.hooks.OnTxDropRecorded(1)
			} else {
				q.hooks.OnFatalOverflow(ErrorCodeQueueFull, q.maxSize)
			}
			q.updateZone()
			return
		}
	}

	prevCount := q.store.Len()
	var n *node
	if m.priority == PriorityData {
		n = q.store.PushFront(m)
	} else {
		n = q.insertByPriority(m)
	}

	if q.index != nil {
		if hint != nil {
			q.index.insertBefore(*hint, n)
		} else {
			q.index.insertAnywhere(q, n)
		}
	}

	q.bytes += m.size
	q.updateZone()
	q.tx.ServiceEnable()
	if prevCount == 0 {
		q.hooks.OnTxServiceNeeded(true)
	}
}

// insertByPriority implements the non-DATA insertion walk from spec.md
// §4.3 step 4: scan from the tail toward the head, skip partially-written
// nodes and nodes of priority >= m's, insert immediately on the tail side of
// the first strictly-lower-priority node found, or push at head if none.
func (q *Queue) insertByPriority(m *Message) *node {
	var target *node
	for n := q.store.Tail(); n != nil; n = n.prev {
		if n.msg.Written() {
			continue
		}
		if n.msg.priority < m.priority {
			target = n
			break
		}
	}
	if target == nil {
		return q.store.PushFront(m)
	}
	return q.store.InsertAfter(target, m)
}

// NotifyBytesWritten advances the transmit-side (tail) message's read cursor
// by n bytes, removing it once fully consumed (spec.md §4.3/§6).
func (q *Queue) NotifyBytesWritten(n int) {
	if n <= 0 {
		return
	}
	tail := q.store.Tail()
	if tail == nil {
		return
	}
	remaining := tail.msg.Remaining()
	if n > remaining {
		n = remaining
	}
	tail.msg.readCursor += n
	q.bytes -= n
	q.bytesSinceCheckpoint += n

	if tail.msg.readCursor >= tail.msg.size {
		q.store.Remove(tail)
		if q.index != nil {
			q.index.remove(tail)
		}
	}

	q.updateZone()
	if q.store.Len() == 0 {
		q.tx.ServiceDisable()
		q.hooks.OnTxServiceNeeded(false)
	}
}

// Clear removes every unsent message from the head until it hits the first
// partially-written one (there can be at most one, and only once the queue
// is down to a single remaining message) or empties the queue entirely
// (spec.md §4.4).
func (q *Queue) Clear() {
	if q.store.Len() == 0 {
		return
	}
	for {
		n := q.store.Head()
		if n == nil || n.msg.Written() {
			break
		}
		q.store.Remove(n)
		q.bytes -= n.msg.size
	}
	q.freeIndex()
	q.updateZone()
	if q.store.Len() == 0 {
		q.tx.ServiceDisable()
		q.hooks.OnTxServiceNeeded(false)
	}
}

// Shutdown marks the queue as no longer accepting new messages. Enqueue
// after Shutdown is a silent no-op (spec.md §7 EnqueueAfterShutdown: a
// recoverable condition, not an error the caller needs to see).
func (q *Queue) Shutdown() {
	q.shutdown = true
}

// Free releases the queue's resources and stops any pending SWIFT timer.
// Safe to call once, after Shutdown.
func (q *Queue) Free() {
	q.tx.Free()
	q.store = list{}
	q.freeIndex()
	if q.swiftTimer != nil {
		q.swiftTimer.Stop()
		q.swiftTimer = nil
	}
}

func (q *Queue) freeIndex() { q.index = nil }

func (q *Queue) buildIndex() { q.index = buildSortIndex(q) }

// Stats returns a snapshot of the queue's current accounting state.
func (q *Queue) Stats() Stats {
	return Stats{
		Bytes:   q.bytes,
		Count:   q.store.Len(),
		Zone:    q.zone,
		Swift:   q.swift,
		MaxSize: q.maxSize,
		Hi:      q.hi,
		Lo:      q.lo,
	}
}

// invariantViolation implements spec.md §7's debug-vs-release split: panic
// under the peerqdebug build tag, otherwise recompute authoritative state
// from a full store walk and log it.
func (q *Queue) invariantViolation(reason string) {
	if q.debug {
		panic("mq: invariant violation: " + reason)
	}
	q.recount()
	if q.logger != nil {
		q.logger.Error("mq invariant violation, recomputed from store walk", "reason", reason)
	}
}

func (q *Queue) recount() {
	bytes := 0
	for n := q.store.Head(); n != nil; n = n.next {
		bytes += n.msg.Remaining()
	}
	q.bytes = bytes
}
