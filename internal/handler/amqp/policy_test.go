package amqp

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/netmesh/peerq/internal/mq"
)

func TestJSONEnvelopePolicyDecode(t *testing.T) {
	id := uuid.New()
	body, err := json.Marshal(wireEnvelope{
		PeerID:    id,
		Priority:  "URGENT",
		Header:    []byte{1, 2, 3, 4},
		Droppable: false,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	gotID, m, err := (JSONEnvelopePolicy{}).Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotID != id {
		t.Fatalf("peer id = %v, want %v", gotID, id)
	}
	if m.Priority() != mq.PriorityUrgent {
		t.Fatalf("priority = %v, want URGENT", m.Priority())
	}
	if m.Droppable() {
		t.Fatal("expected non-droppable message")
	}
}

func TestJSONEnvelopePolicyDefaultsToData(t *testing.T) {
	body, _ := json.Marshal(wireEnvelope{PeerID: uuid.New(), Header: []byte{9}})
	_, m, err := (JSONEnvelopePolicy{}).Decode(body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Priority() != mq.PriorityData {
		t.Fatalf("priority = %v, want DATA default", m.Priority())
	}
}

func TestJSONEnvelopePolicyRejectsUnknownPriority(t *testing.T) {
	body, _ := json.Marshal(wireEnvelope{PeerID: uuid.New(), Priority: "BOGUS", Header: []byte{9}})
	if _, _, err := (JSONEnvelopePolicy{}).Decode(body); err == nil {
		t.Fatal("expected an error for an unknown priority")
	}
}

func TestJSONEnvelopePolicyRejectsMalformedJSON(t *testing.T) {
	if _, _, err := (JSONEnvelopePolicy{}).Decode([]byte("{not json")); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestJSONEnvelopePolicyRejectsEmptyHeader(t *testing.T) {
	body, _ := json.Marshal(wireEnvelope{PeerID: uuid.New(), Priority: "DATA"})
	if _, _, err := (JSONEnvelopePolicy{}).Decode(body); err == nil {
		t.Fatal("expected an error for an empty header, mirroring mq.NewMessage's ErrEmptyMessage")
	}
}
