// Package metrics wires peer-level flow-control events into OpenTelemetry
// metric instruments, matching the teacher's otel/metric + otel/sdk/metric
// dependency pair.
package metrics

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/metric"

	"github.com/netmesh/peerq/internal/peer"
)

// Recorder counts drops, zone transitions and fatal overflows as OTel
// counters. It implements peer.EventSink; cmd/fx.go feeds it from a
// subscription to the Registry's EventBus.
type Recorder struct {
	drops     metric.Int64Counter
	zoneMoves metric.Int64Counter
	overflows metric.Int64Counter
}

// New builds a Recorder against the given Meter (typically
// otel.Meter("peerq")).
func New(meter metric.Meter) (*Recorder, error) {
	drops, err := meter.Int64Counter("peerq.drops",
		metric.WithDescription("messages dropped by a peer's outbound queue"))
	if err != nil {
		return nil, err
	}
	zoneMoves, err := meter.Int64Counter("peerq.zone_transitions",
		metric.WithDescription("watermark FSM zone transitions"))
	if err != nil {
		return nil, err
	}
	overflows, err := meter.Int64Counter("peerq.fatal_overflows",
		metric.WithDescription("fatal overflow events that will close a peer connection"))
	if err != nil {
		return nil, err
	}
	return &Recorder{drops: drops, zoneMoves: zoneMoves, overflows: overflows}, nil
}

func (r *Recorder) OnPeerEvent(e peer.Event) {
	ctx := context.Background()
	switch e.Kind {
	case "drop":
		n, err := strconv.Atoi(e.Detail)
		if err != nil || n <= 0 {
			n = 1
		}
		r.drops.Add(ctx, int64(n))
	case "enter_warn", "leave_warn", "enter_flowc", "leave_flowc", "enter_swift":
		r.zoneMoves.Add(ctx, 1)
	case "fatal_overflow":
		r.overflows.Add(ctx, 1)
	}
}
