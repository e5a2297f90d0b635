package mq

import "time"

// SwiftReferenceBuilder supplies the synthetic (header, priority) references
// the SWIFT checkpoint sweeps against (spec.md §4.8's "abstract reference").
// The original protocol purges non-originating queries first, then
// progressively older query hits by hop count; both are enqueuing-layer
// policy this package deliberately doesn't know about (spec.md §1
// Non-goals). Implementations live with the policy that decides message
// priority/headers in the first place.
type SwiftReferenceBuilder interface {
	// InitialReference is used for the very first checkpoint, fired right
	// after the FLOWC grace period expires.
	InitialReference() (header []byte, priority Priority)
	// StepReference is used for the 0-based nth progressive sweep of a
	// periodic (non-initial) checkpoint. ok is false once the caller has run
	// out of distinct references to try.
	StepReference(step int) (header []byte, priority Priority, ok bool)
}

// defaultSwiftReferenceBuilder degrades SWIFT to a single priority-only
// sweep per checkpoint: still performs the exact byte-budget arithmetic
// spec.md §4.8 requires, just without protocol-specific header targeting.
type defaultSwiftReferenceBuilder struct{}

func (defaultSwiftReferenceBuilder) InitialReference() ([]byte, Priority) {
	return nil, PriorityData
}

func (defaultSwiftReferenceBuilder) StepReference(step int) ([]byte, Priority, bool) {
	return nil, PriorityData, step == 0
}

func secondsToDuration(seconds int) time.Duration {
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second
}

// swiftCheckpoint implements the period-ratio arithmetic from spec.md §4.8,
// grounded directly on mq.c's mq_swift_checkpoint. elapsedMs is always the
// duration that was actually scheduled for this fire (the single-threaded,
// non-reentrant timer model means scheduled duration and actual elapsed
// duration never diverge).
func (q *Queue) swiftCheckpoint(initial bool) {
	elapsedMs := q.swiftElapsedMs
	if elapsedMs <= 0 {
		elapsedMs = 1
	}
	periodSeconds := q.hooks.FlowcSwiftPeriodSeconds()
	nextPeriodMs := periodSeconds * 1000

	targetToLow := q.bytes - q.lo
	added := q.bytes - q.lastSize + q.bytesSinceCheckpoint
	periodRatio := float64(nextPeriodMs) / float64(elapsedMs)

	flushNext := int(float64(q.bytesSinceCheckpoint) * periodRatio)
	addNext := 0
	if added > 0 {
		addNext = int(float64(added) * periodRatio)
	}
	extra := targetToLow - (flushNext - addNext)

	var needed int
	if extra <= 0 {
		needed = targetToLow / 3
	} else {
		needed = extra + flushNext/4
	}

	if initial {
		if needed > 0 {
			header, prio := q.refBuilder.InitialReference()
			q.makeRoom(dropReference{header: header, priority: prio}, needed)
		}
	} else {
		for step := 0; needed > 0; step++ {
			header, prio, ok := q.refBuilder.StepReference(step)
			if !ok {
				break
			}
			before := q.bytes
			success, _ := q.makeRoom(dropReference{header: header, priority: prio}, needed)
			needed -= before - q.bytes
			if success {
				break
			}
			if step+1 >= q.swiftMaxSteps {
				break
			}
		}
	}

	q.updateZone()

	if q.zone == ZoneFlowC {
		q.bytesSinceCheckpoint = 0
		q.lastSize = q.bytes
		q.swiftElapsedMs = nextPeriodMs
		q.swiftTimer = q.clock.AfterFunc(secondsToDuration(periodSeconds), q.onSwiftPeriodFired)
	}
}

// onSwiftPeriodFired fires on the recurring SWIFT checkpoint timer.
// TimerReentry guard: FLOWC may have already been left since this was
// scheduled (spec.md §7).
func (q *Queue) onSwiftPeriodFired() {
	if q.zone != ZoneFlowC || !q.swift {
		return
	}
	q.swiftTimer = nil
	q.swiftCheckpoint(false)
}
