package mq

// dropReference is the abstract target the Drop Engine scans against: either
// a concrete enqueued message (header + priority) or, from the SWIFT
// scheduler, a synthetic (header template, priority) pair representing a
// class of traffic to purge (spec.md §4.6 "Inputs"). The header template's
// actual meaning (e.g. "non-originating query" in the original protocol) is
// enqueuing-layer policy and explicitly out of scope here; see
// SwiftReferenceBuilder.
type dropReference struct {
	header   []byte
	priority Priority
}

func referenceFromMessage(m *Message) dropReference {
	return dropReference{header: m.header, priority: m.priority}
}

// makeRoom walks the Sort Index from the most disposable end, evicting
// messages strictly less important than ref until more than needed bytes
// have been freed (the scan goes on while the remaining budget is >= 0) or a
// message that is equally-or-more important is hit.
// Returns whether enough was freed, and — when the scan stopped short
// because of a boundary message rather than exhausting the index — the
// index offset where ref itself should be inserted (spec.md §4.6).
//
// Grounded on mq.c's make_room_header. The header-order boundary only
// applies to a candidate of ref's own priority (the original C gates on
// header order alone): a candidate of strictly lower priority is evicted
// whatever its header, and one of strictly higher priority always stops the
// scan. That keeps priority dominance (§4.1, invariant 4) intact and makes
// the returned offset ref's own sorted insertion point — see DESIGN.md for
// the recorded Open Question resolution.
func (q *Queue) makeRoom(ref dropReference, needed int) (ok bool, hint *int) {
	if q.store.Len() == 0 {
		return false, nil
	}
	if q.index == nil {
		q.buildIndex()
	}
	idx := q.index

	dropped := 0
	for i := 0; needed >= 0 && i < len(idx.slots); i++ {
		n := idx.slots[i]
		if n == nil {
			continue
		}
		if n.msg.Written() {
			continue
		}
		if n.msg.priority == ref.priority && q.cmp.compareHeader(n.msg.header, ref.header) >= 0 {
			h := i
			if dropped > 0 {
				q.hooks.OnTxDropRecorded(dropped)
			}
			return needed <= 0, &h
		}
		if n.msg.priority > ref.priority {
			h := i
			if dropped > 0 {
				q.hooks.OnTxDropRecorded(dropped)
			}
			return needed <= 0, &h
		}

		sz := n.msg.Remaining()
		q.store.Remove(n)
		idx.slots[i] = nil
		idx.live--
		q.bytes -= sz
		needed -= sz
		dropped++
	}

	if dropped > 0 {
		q.hooks.OnTxDropRecorded(dropped)
	}
	if q.store.Len() == 0 {
		q.tx.ServiceDisable()
		q.hooks.OnTxServiceNeeded(false)
	}
	return needed <= 0, nil
}
