// Package amqp adapts an AMQP-backed message bus into peer enqueue traffic.
// Grounded on the teacher's now-deleted internal/handler/amqp/bind.go:
// the panic-recovery-and-poison-pill-ack pattern and the
// decode-then-filter-then-deliver shape are kept; "deliver" is retargeted
// from registry.Hub.Broadcast to registry.GetOrCreate(...).Enqueue(...).
package amqp

import (
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/netmesh/peerq/internal/registry"
)

// Ingestor turns inbound bus messages into peer.Enqueue calls.
type Ingestor struct {
	registry *registry.Registry
	policy   EnqueuePolicy
	logger   *slog.Logger
}

// NewIngestor builds an Ingestor. policy defaults to JSONEnvelopePolicy{}
// when nil.
func NewIngestor(reg *registry.Registry, policy EnqueuePolicy, logger *slog.Logger) *Ingestor {
	if policy == nil {
		policy = JSONEnvelopePolicy{}
	}
	return &Ingestor{registry: reg, policy: policy, logger: logger}
}

// Handle is a watermill NoPublishHandlerFunc: every message it's handed is
// either enqueued onto the target peer's queue and acked, or acked anyway
// as a poison pill if it can't be decoded -- the bus has no business
// redelivering a message this handler will never be able to parse.
func (h *Ingestor) Handle(msg *message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("amqp ingest handler panicked",
				"recover", r, "stack", string(debug.Stack()))
			err = nil // ack and move on; a crash loop helps no one here.
		}
	}()

	peerID, m, decodeErr := h.policy.Decode(msg.Payload)
	if decodeErr != nil {
		h.logger.Warn("amqp ingest: dropping undecodable message",
			"message_uuid", msg.UUID, "error", decodeErr)
		return nil // poison pill: ack, don't requeue.
	}

	p, err := h.registry.GetOrCreate(peerID)
	if err != nil {
		h.logger.Error("amqp ingest: failed to acquire peer",
			"peer_id", peerID, "error", err)
		return err // let the bus retry; this is infra failure, not bad data.
	}

	p.Enqueue(m)
	return nil
}
