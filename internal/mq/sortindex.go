package mq

import "sort"

// sortIndex is the cached, disposability-ordered view over a Queue's live
// messages (spec.md §3 SI, §4.7). slots[i] == nil is a tombstone left behind
// by a removal that didn't bother shifting the rest of the array. Grounded
// on mq.c's qlink_* functions (array of GList* with NULL tombstones, lazy
// compaction) and on the pack's xmidt-org QoS priority queue, whose
// item.discard-then-trim shape is the same "mark, don't shift" idea applied
// with Go slices instead of a C array.
//
// Live (non-tombstone) slots are always kept in non-decreasing comparator
// order (priority, then header).
type sortIndex struct {
	slots []*node
	live  int
}

// buildSortIndex populates the index by walking the Queue Store head to
// tail, then sorting (spec.md §4.7 "Build").
func buildSortIndex(q *Queue) *sortIndex {
	slots := make([]*node, 0, q.store.Len())
	for n := q.store.Head(); n != nil; n = n.next {
		slots = append(slots, n)
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return q.cmp.compare(slots[i].msg, slots[j].msg) < 0
	})
	return &sortIndex{slots: slots, live: len(slots)}
}

// insertBefore places n at position offset, reusing an adjacent tombstone
// when one is available instead of widening the slice.
func (si *sortIndex) insertBefore(offset int, n *node) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(si.slots) {
		offset = len(si.slots)
	}
	if offset > 0 && si.slots[offset-1] == nil {
		si.slots[offset-1] = n
		si.live++
		return
	}
	si.slots = append(si.slots, nil)
	copy(si.slots[offset+1:], si.slots[offset:len(si.slots)-1])
	si.slots[offset] = n
	si.live++
}

// insertAnywhere performs the tombstone-aware binary search from spec.md
// §4.7: find the insertion point by comparator order, treating a run of nil
// tombstones as "unknown" and narrowing toward whichever live neighbor
// resolves the comparison. Grounded directly on mq.c's qlink_insert.
func (si *sortIndex) insertAnywhere(q *Queue, n *node) {
	if len(si.slots) == 0 {
		si.slots = append(si.slots, n)
		si.live++
		return
	}

	low, high := 0, len(si.slots)-1

	if si.slots[low] != nil && q.cmp.compare(n.msg, si.slots[low].msg) <= 0 {
		si.insertBefore(low, n)
		return
	}
	if si.slots[high] != nil && q.cmp.compare(n.msg, si.slots[high].msg) >= 0 {
		si.slots = append(si.slots, n)
		si.live++
		return
	}

	for low <= high {
		mid := low + (high-low)/2
		if si.slots[mid] == nil {
			lowestNonNil, highestNonNil := -1, -1
			for i := mid - 1; i >= low; i-- {
				if si.slots[i] != nil {
					lowestNonNil = i
					break
				}
			}
			for i := mid + 1; i <= high; i++ {
				if si.slots[i] != nil {
					highestNonNil = i
					break
				}
			}
			switch {
			case lowestNonNil == -1 && highestNonNil == -1:
				si.slots[mid] = n
				si.live++
				return
			case lowestNonNil == -1:
				low = mid + 1
				continue
			case highestNonNil == -1:
				high = mid - 1
				continue
			}
			if lowestNonNil <= low+1 && highestNonNil >= high-1 {
				si.slots[mid] = n
				si.live++
				return
			}
			if q.cmp.compare(n.msg, si.slots[lowestNonNil].msg) < 0 {
				high = lowestNonNil - 1
				continue
			}
			if q.cmp.compare(n.msg, si.slots[highestNonNil].msg) > 0 {
				low = highestNonNil + 1
				continue
			}
			low = lowestNonNil + 1
			high = highestNonNil - 1
			continue
		}
		c := q.cmp.compare(si.slots[mid].msg, n.msg)
		switch {
		case c == 0:
			si.insertBefore(mid, n)
			return
		case c < 0:
			low = mid + 1
		default:
			high = mid - 1
		}
	}

	if low >= len(si.slots) {
		si.slots = append(si.slots, n)
		si.live++
		return
	}
	if si.slots[low] == nil {
		si.slots[low] = n
		si.live++
		return
	}
	si.insertBefore(low, n)
}

// remove tombstones n's slot. Compaction runs when the tombstone count
// exceeds twice the live count, i.e. total length exceeds 3x live count
// (spec.md §4.7 "Subsequent operations").
func (si *sortIndex) remove(n *node) {
	for i, s := range si.slots {
		if s == n {
			si.slots[i] = nil
			si.live--
			break
		}
	}
	if len(si.slots) > 3*si.live {
		si.compact()
	}
}

func (si *sortIndex) compact() {
	out := si.slots[:0]
	for _, s := range si.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	si.slots = out
}
