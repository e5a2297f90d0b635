package amqp

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/netmesh/peerq/internal/mq"
	"github.com/netmesh/peerq/internal/peer"
)

// wireEnvelope is the JSON shape ingest messages arrive in. The actual wire
// protocol a peer speaks is explicitly out of scope (spec.md §1 Non-goals);
// this envelope is this module's own ingest-bus contract, not that
// protocol.
type wireEnvelope struct {
	PeerID    uuid.UUID `json:"peer_id"`
	Priority  string    `json:"priority"`
	Header    []byte    `json:"header"`
	Droppable bool      `json:"droppable"`
}

// EnqueuePolicy turns one ingest-bus message body into a (peer.ID,
// *mq.Message) pair. It exists as an interface, not a free function, so a
// deployment can swap in its own envelope format without touching the
// router wiring in module.go.
type EnqueuePolicy interface {
	Decode(body []byte) (peer.ID, *mq.Message, error)
}

// JSONEnvelopePolicy implements EnqueuePolicy against wireEnvelope.
type JSONEnvelopePolicy struct{}

func (JSONEnvelopePolicy) Decode(body []byte) (peer.ID, *mq.Message, error) {
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return uuid.Nil, nil, fmt.Errorf("amqp: decode envelope: %w", err)
	}
	prio, err := parsePriority(env.Priority)
	if err != nil {
		return uuid.Nil, nil, err
	}
	m, err := mq.NewMessage(prio, env.Header, env.Droppable)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("amqp: build message: %w", err)
	}
	return env.PeerID, m, nil
}

func parsePriority(s string) (mq.Priority, error) {
	switch s {
	case "LOW":
		return mq.PriorityLow, nil
	case "DATA", "":
		return mq.PriorityData, nil
	case "URGENT":
		return mq.PriorityUrgent, nil
	case "CONTROL":
		return mq.PriorityControl, nil
	default:
		return 0, fmt.Errorf("amqp: unknown priority %q", s)
	}
}
