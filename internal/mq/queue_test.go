package mq

import (
	"bytes"
	"sort"
	"testing"
	"time"
)

// assertCoherent checks the invariants from spec.md §8 that hold after every
// operation: size/count consistency, the max_size bound, and (when an index
// exists) Sort Index ordering.
func assertCoherent(t *testing.T, q *Queue) {
	t.Helper()

	sum := 0
	count := 0
	for n := q.store.Head(); n != nil; n = n.next {
		sum += n.msg.Remaining()
		count++
	}
	if sum != q.bytes {
		t.Fatalf("bytes accounting drifted: store sum=%d q.bytes=%d", sum, q.bytes)
	}
	if count != q.store.Len() {
		t.Fatalf("count drifted: walked=%d store.Len=%d", count, q.store.Len())
	}
	if q.bytes > q.maxSize {
		t.Fatalf("bytes %d exceeds max_size %d", q.bytes, q.maxSize)
	}

	if q.index == nil {
		return
	}
	var live []*node
	for _, s := range q.index.slots {
		if s != nil {
			live = append(live, s)
		}
	}
	if !sort.SliceIsSorted(live, func(i, j int) bool {
		return q.cmp.compare(live[i].msg, live[j].msg) < 0
	}) {
		t.Fatalf("sort index is not ordered by the comparator")
	}
}

func TestS1_FIFO(t *testing.T) {
	q, _, _, _ := newTestQueue(t, 10000, 8000, 4000)
	for i := uint64(0); i < 10; i++ {
		q.Enqueue(mustMessage(t, PriorityData, 100, true, i))
		assertCoherent(t, q)
	}
	if q.zone != ZoneNormal {
		t.Fatalf("expected zone NORMAL, got %s", q.zone)
	}
	order := transmissionOrder(q)
	if len(order) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(order))
	}
	for i, h := range order {
		if !bytes.Equal(h, header(uint64(i))) {
			t.Fatalf("transmission order mismatch at %d: got seq %v", i, h)
		}
	}
}

func TestS2_Warn(t *testing.T) {
	q, hooks, _, _ := newTestQueue(t, 1000, 800, 400)
	for i := uint64(0); i < 5; i++ {
		q.Enqueue(mustMessage(t, PriorityData, 100, true, i))
		assertCoherent(t, q)
	}
	if hooks.enterWarn != 1 {
		t.Fatalf("expected on_tx_enter_warn exactly once, got %d", hooks.enterWarn)
	}
	if q.bytes != 500 {
		t.Fatalf("expected bytes=500, got %d", q.bytes)
	}

	drainOne(q)
	drainOne(q)
	assertCoherent(t, q)

	if hooks.leaveWarn != 1 {
		t.Fatalf("expected on_tx_leave_warn exactly once, got %d", hooks.leaveWarn)
	}
}

func TestS3_FlowcDrop(t *testing.T) {
	q, hooks, _, _ := newTestQueue(t, 1000, 800, 400)
	// All DATA-priority messages share one header, so the comparator treats
	// them as equally disposable: the Drop Engine's boundary check stops at
	// the first candidate and evicts nothing, matching "SI has no
	// strictly-less-important traffic".
	constHeader := header(1)
	for i := 0; i < 8; i++ {
		m, err := NewMessage(PriorityData, constHeader, true)
		if err != nil {
			t.Fatal(err)
		}
		m.size = 100
		q.Enqueue(m)
		assertCoherent(t, q)
	}
	if q.zone != ZoneFlowC {
		t.Fatalf("expected zone FLOWC at bytes=800, got %s (%d bytes)", q.zone, q.bytes)
	}
	bytesBefore := q.bytes

	for i := 0; i < 10; i++ {
		m, err := NewMessage(PriorityData, constHeader, true)
		if err != nil {
			t.Fatal(err)
		}
		m.size = 50
		q.Enqueue(m)
		assertCoherent(t, q)
	}

	if hooks.dropsRecorded != 10 {
		t.Fatalf("expected 10 drops recorded, got %d", hooks.dropsRecorded)
	}
	if q.bytes != bytesBefore {
		t.Fatalf("expected bytes unchanged at %d, got %d", bytesBefore, q.bytes)
	}
}

func TestS4_FlowcEviction(t *testing.T) {
	// max tightened relative to the 800/400 baseline so that landing at
	// bytes=810 (FLOWC) genuinely leaves no room for the URGENT message
	// without an eviction -- the literal scenario's byte state only makes
	// sense with a max below 910.
	q, _, _, _ := newTestQueue(t, 850, 800, 400)
	for i := uint64(0); i < 9; i++ {
		q.Enqueue(mustMessage(t, PriorityData, 90, true, i))
		assertCoherent(t, q)
	}
	if q.zone != ZoneFlowC {
		t.Fatalf("expected zone FLOWC at bytes=810, got %s (%d bytes)", q.zone, q.bytes)
	}
	if q.bytes != 810 {
		t.Fatalf("expected bytes=810, got %d", q.bytes)
	}

	urgent := mustMessage(t, PriorityUrgent, 100, false, 999)
	q.Enqueue(urgent)
	assertCoherent(t, q)

	if q.bytes+0 > q.maxSize {
		t.Fatalf("bytes %d exceeds max after eviction+insert", q.bytes)
	}

	order := transmissionOrder(q)
	urgentPos := -1
	for i, h := range order {
		if bytes.Equal(h, header(999)) {
			urgentPos = i
			break
		}
	}
	if urgentPos == -1 {
		t.Fatalf("urgent message missing from transmission order")
	}
	for i, h := range order {
		if i == urgentPos {
			continue
		}
		if !bytes.Equal(h, header(999)) && i < urgentPos {
			t.Fatalf("DATA message at position %d transmits before URGENT at %d", i, urgentPos)
		}
	}
}

func TestS5_FatalOverflow(t *testing.T) {
	q, hooks, _, _ := newTestQueue(t, 200, 150, 50)
	sharedHeader := header(42)

	m1, err := NewMessage(PriorityUrgent, sharedHeader, false)
	if err != nil {
		t.Fatal(err)
	}
	m1.size = 150
	q.Enqueue(m1)
	assertCoherent(t, q)
	if q.zone != ZoneFlowC {
		t.Fatalf("expected zone FLOWC after first enqueue, got %s", q.zone)
	}

	m2, err := NewMessage(PriorityUrgent, sharedHeader, false)
	if err != nil {
		t.Fatal(err)
	}
	m2.size = 100
	q.Enqueue(m2)
	assertCoherent(t, q)

	if len(hooks.fatalOverflows) != 1 {
		t.Fatalf("expected exactly one fatal overflow, got %d", len(hooks.fatalOverflows))
	}
	fo := hooks.fatalOverflows[0]
	if fo.code != ErrorCodeQueueFull || fo.max != 200 {
		t.Fatalf("unexpected fatal overflow params: %+v", fo)
	}
	if q.bytes != 150 || q.store.Len() != 1 {
		t.Fatalf("queue state changed: bytes=%d count=%d", q.bytes, q.store.Len())
	}
}

func TestS6_PartialWriteImmunity(t *testing.T) {
	q, _, _, _ := newTestQueue(t, 1000, 800, 400)

	head := mustMessage(t, PriorityData, 500, true, 0)
	q.Enqueue(head)
	assertCoherent(t, q)

	q.NotifyBytesWritten(100)
	assertCoherent(t, q)
	if q.bytes != 400 {
		t.Fatalf("expected bytes=400 after partial write, got %d", q.bytes)
	}

	protectedNode := q.store.Tail()
	if protectedNode == nil || !bytes.Equal(protectedNode.msg.header, header(0)) {
		t.Fatalf("expected the 500-byte message to still be the transmit-side message")
	}

	for i := uint64(1); i <= 20; i++ {
		q.Enqueue(mustMessage(t, PriorityData, 50, true, i))
		assertCoherent(t, q)

		found := false
		for n := q.store.Head(); n != nil; n = n.next {
			if n == protectedNode {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("protected partially-written message was evicted after enqueue %d", i)
		}
		if protectedNode.msg.readCursor != 100 {
			t.Fatalf("protected message's read cursor changed unexpectedly: %d", protectedNode.msg.readCursor)
		}
	}
}

func TestZoneHysteresis_NoDoubleFire(t *testing.T) {
	q, hooks, _, _ := newTestQueue(t, 1000, 800, 400)
	for i := uint64(0); i < 5; i++ {
		q.Enqueue(mustMessage(t, PriorityData, 100, true, i))
	}
	if hooks.enterWarn != 1 {
		t.Fatalf("expected single enter_warn crossing lo, got %d", hooks.enterWarn)
	}
	// Hovering around lo via repeated small writes/enqueues must never
	// re-fire enter_warn while still above lo.
	q.NotifyBytesWritten(10)
	q.Enqueue(mustMessage(t, PriorityData, 10, true, 999))
	if hooks.enterWarn != 1 {
		t.Fatalf("enter_warn re-fired while remaining above lo: %d", hooks.enterWarn)
	}
}

func TestSwiftCheckpointFiresAfterGrace(t *testing.T) {
	q, hooks, _, fc := newTestQueue(t, 1000, 800, 400)
	for i := uint64(0); i < 8; i++ {
		q.Enqueue(mustMessage(t, PriorityData, 100, true, i))
	}
	if q.zone != ZoneFlowC {
		t.Fatalf("expected FLOWC before grace expiry, got %s", q.zone)
	}
	if q.swift {
		t.Fatalf("swift should not be active before the grace timer fires")
	}

	fc.Advance(time.Duration(hooks.graceSeconds) * time.Second)

	if hooks.enterSwift != 1 {
		t.Fatalf("expected on_tx_enter_swift exactly once, got %d", hooks.enterSwift)
	}
	if !q.swift {
		t.Fatalf("expected swift substate active after grace expiry")
	}
	assertCoherent(t, q)

	if q.zone == ZoneFlowC {
		fc.Advance(time.Duration(hooks.periodSeconds) * time.Second)
		assertCoherent(t, q)
	}
}

func TestEnqueueAfterShutdownIsSilent(t *testing.T) {
	q, hooks, _, _ := newTestQueue(t, 1000, 800, 400)
	q.Enqueue(mustMessage(t, PriorityData, 100, true, 0))
	q.Shutdown()
	q.Enqueue(mustMessage(t, PriorityData, 100, true, 1))

	if q.bytes != 100 || q.store.Len() != 1 {
		t.Fatalf("enqueue after shutdown mutated queue state: bytes=%d count=%d", q.bytes, q.store.Len())
	}
	if hooks.dropsRecorded != 0 {
		t.Fatalf("enqueue after shutdown must not be counted as a drop")
	}
}

func TestClearStopsAtPartialWrite(t *testing.T) {
	q, _, tx, _ := newTestQueue(t, 1000, 800, 400)
	q.Enqueue(mustMessage(t, PriorityData, 100, true, 0))
	q.Enqueue(mustMessage(t, PriorityData, 100, true, 1))
	q.NotifyBytesWritten(30) // partially consumes the tail (oldest) message

	q.Clear()
	assertCoherent(t, q)

	if q.store.Len() != 1 {
		t.Fatalf("expected the partially-written message to survive Clear, store len=%d", q.store.Len())
	}
	if tx.disabled != 0 {
		t.Fatalf("service must stay enabled while a partial message remains")
	}
}
