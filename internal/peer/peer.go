// Package peer wraps one remote party's outbound Message Queue in a small
// actor: a single goroutine owns the mq.Queue and drains a command channel,
// which is what lets mq.Queue stay lock-free (spec.md §5) while still being
// safely reachable from the registry's and the AMQP ingest path's arbitrary
// goroutines.
package peer

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/netmesh/peerq/internal/mq"
)

// ID identifies a peer. Reuses uuid.UUID rather than inventing a distinct
// wrapper type: every caller that has a peer ID already has (or wants) a
// uuid.UUID, and a type alias costs nothing here.
type ID = uuid.UUID

// Event is a diagnostics-facing record of something that happened inside a
// peer's queue. It exists for the admin HTTP/websocket tail (SPEC_FULL.md
// A14), not for control flow -- nothing inside this package branches on it.
type Event struct {
	Peer   ID
	Kind   string
	At     time.Time
	Detail string
}

// EventSink receives Events. Implementations must not block for long: they
// are invoked from the peer's own goroutine, synchronously, the same way
// mq.PeerHooks methods are invoked from the Queue (spec.md §5's
// "non-reentrant, must not call back" rule applies transitively here).
type EventSink interface {
	OnPeerEvent(Event)
}

// EventSinkFunc adapts a plain function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) OnPeerEvent(e Event) { f(e) }

// commandKind enumerates the operations that must run on the peer's single
// goroutine because they touch the underlying mq.Queue.
type commandKind int

const (
	cmdEnqueue commandKind = iota
	cmdNotifyWritten
	cmdStats
	cmdClear
	cmdShutdown
	cmdClose
)

type command struct {
	kind  commandKind
	msg   *mq.Message
	n     int
	reply chan any
}

// Peer owns one mq.Queue and the single goroutine permitted to call into it.
type Peer struct {
	id    ID
	queue *mq.Queue
	cmds  chan command
	done  chan struct{}
	sink  EventSink

	dropped      atomic.Int64
	zoneTransits atomic.Int64
	lastActivity atomic.Int64 // unix nanos
	zone         atomic.Int32

	graceSeconds  int
	periodSeconds int
}

// Config bundles the construction-time dependencies a Peer needs to build
// its mq.Queue. tx and hooks config come from the caller because the wiring
// (tx driver implementation, SWIFT grace/period policy) is the registry's
// concern, not this package's.
type Config struct {
	ID            ID
	TX            mq.TXDriver
	Queue         mq.Config
	Sink          EventSink
	MQOpts        []mq.Option
	Backlog       int // command channel buffer size; 0 uses a sane default.
	GraceSeconds  int // FLOWC->SWIFT grace period; <= 0 uses the default of 10.
	PeriodSeconds int // SWIFT checkpoint period; <= 0 uses the default of 2.
}

// New starts a Peer's goroutine and returns the handle. The Peer implements
// mq.PeerHooks itself and passes itself as the hook set, so every flow
// control transition and drop is visible as an Event without the caller
// having to wire a separate hooks struct.
func New(cfg Config) (*Peer, error) {
	backlog := cfg.Backlog
	if backlog <= 0 {
		backlog = 256
	}
	grace := cfg.GraceSeconds
	if grace <= 0 {
		grace = 10
	}
	period := cfg.PeriodSeconds
	if period <= 0 {
		period = 2
	}
	p := &Peer{
		id:            cfg.ID,
		cmds:          make(chan command, backlog),
		done:          make(chan struct{}),
		sink:          cfg.Sink,
		graceSeconds:  grace,
		periodSeconds: period,
	}
	p.touch()

	q, err := mq.New(cfg.TX, p, cfg.Queue, cfg.MQOpts...)
	if err != nil {
		return nil, err
	}
	p.queue = q

	go p.loop()
	return p, nil
}

func (p *Peer) ID() ID { return p.id }

func (p *Peer) touch() { p.lastActivity.Store(time.Now().UnixNano()) }

// IdleSince reports how long this peer has gone without activity -- used by
// the registry's eviction sweep.
func (p *Peer) IdleSince() time.Duration {
	last := time.Unix(0, p.lastActivity.Load())
	return time.Since(last)
}

// Enqueue is the non-blocking, fire-and-forget path most ingest traffic
// takes: if the command backlog is saturated, the message is dropped and
// counted here rather than ever reaching the Queue. This mirrors the
// teacher's Cell.Push "drop on full mailbox" shock absorber (see
// internal/registry's grounding notes) -- it's a distinct drop path from
// mq.Queue's own flow-control drops, and is only hit when a peer's consumer
// loop itself can't keep up with inbound command volume.
func (p *Peer) Enqueue(m *mq.Message) {
	p.touch()
	select {
	case p.cmds <- command{kind: cmdEnqueue, msg: m}:
	default:
		p.dropped.Add(1)
		p.emit(Event{Kind: "backlog_drop", Detail: "command channel saturated"})
	}
}

// NotifyBytesWritten reports that the lower transport flushed n bytes.
func (p *Peer) NotifyBytesWritten(n int) {
	select {
	case p.cmds <- command{kind: cmdNotifyWritten, n: n}:
	default:
		p.emit(Event{Kind: "backlog_drop", Detail: "notify_bytes_written dropped under saturation"})
	}
}

// Stats synchronously reads the queue's current snapshot.
func (p *Peer) Stats() (mq.Stats, bool) {
	v, ok := p.call(cmdStats, nil, 0)
	if !ok {
		return mq.Stats{}, false
	}
	return v.(mq.Stats), true
}

// Clear synchronously drains unsent, unwritten messages.
func (p *Peer) Clear() bool {
	_, ok := p.call(cmdClear, nil, 0)
	return ok
}

// Shutdown stops the queue from accepting new messages; existing traffic
// continues to drain.
func (p *Peer) Shutdown() bool {
	_, ok := p.call(cmdShutdown, nil, 0)
	return ok
}

// Close shuts the queue down, frees it, and stops the peer's goroutine.
// Safe to call more than once.
func (p *Peer) Close() {
	select {
	case <-p.done:
		return
	default:
	}
	p.call(cmdClose, nil, 0)
}

func (p *Peer) call(kind commandKind, msg *mq.Message, n int) (any, bool) {
	reply := make(chan any, 1)
	select {
	case p.cmds <- command{kind: kind, msg: msg, n: n, reply: reply}:
	case <-p.done:
		return nil, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-p.done:
		return nil, false
	}
}

func (p *Peer) loop() {
	for cmd := range p.cmds {
		switch cmd.kind {
		case cmdEnqueue:
			p.queue.Enqueue(cmd.msg)
		case cmdNotifyWritten:
			p.queue.NotifyBytesWritten(cmd.n)
		case cmdStats:
			cmd.reply <- p.queue.Stats()
		case cmdClear:
			p.queue.Clear()
			cmd.reply <- struct{}{}
		case cmdShutdown:
			p.queue.Shutdown()
			cmd.reply <- struct{}{}
		case cmdClose:
			p.queue.Shutdown()
			p.queue.Clear()
			p.queue.Free()
			cmd.reply <- struct{}{}
			close(p.done)
			return
		}
	}
}

func (p *Peer) emit(e Event) {
	e.Peer = p.id
	e.At = time.Now()
	if p.sink != nil {
		p.sink.OnPeerEvent(e)
	}
}

// --- mq.PeerHooks ---

func (p *Peer) OnTxEnterWarn() {
	p.zone.Store(int32(mq.ZoneWarn))
	p.zoneTransits.Add(1)
	p.emit(Event{Kind: "enter_warn"})
}

func (p *Peer) OnTxLeaveWarn() {
	p.zone.Store(int32(mq.ZoneNormal))
	p.zoneTransits.Add(1)
	p.emit(Event{Kind: "leave_warn"})
}

func (p *Peer) OnTxEnterFlowc() {
	p.zone.Store(int32(mq.ZoneFlowC))
	p.zoneTransits.Add(1)
	p.emit(Event{Kind: "enter_flowc"})
}

func (p *Peer) OnTxLeaveFlowc() {
	p.zone.Store(int32(mq.ZoneNormal))
	p.zoneTransits.Add(1)
	p.emit(Event{Kind: "leave_flowc"})
}

func (p *Peer) OnTxEnterSwift() {
	p.emit(Event{Kind: "enter_swift"})
}

func (p *Peer) OnTxServiceNeeded(needed bool) {
	kind := "service_disabled"
	if needed {
		kind = "service_enabled"
	}
	p.emit(Event{Kind: kind})
}

func (p *Peer) OnTxDropRecorded(n int) {
	p.dropped.Add(int64(n))
	p.emit(Event{Kind: "drop", Detail: strconv.Itoa(n)})
}

func (p *Peer) OnFatalOverflow(reasonCode, maxSize int) {
	p.emit(Event{Kind: "fatal_overflow", Detail: strconv.Itoa(reasonCode)})
}

// FlowcSwiftGraceSeconds and FlowcSwiftPeriodSeconds are policy the
// registry/config layer owns; Peer just forwards the values supplied at
// construction (Config.GraceSeconds/PeriodSeconds).
func (p *Peer) FlowcSwiftGraceSeconds() int  { return p.graceSeconds }
func (p *Peer) FlowcSwiftPeriodSeconds() int { return p.periodSeconds }

func (p *Peer) DroppedTotal() int64    { return p.dropped.Load() }
func (p *Peer) ZoneTransitions() int64 { return p.zoneTransits.Load() }
func (p *Peer) Zone() mq.Zone          { return mq.Zone(p.zone.Load()) }
