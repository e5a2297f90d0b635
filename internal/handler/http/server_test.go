package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/netmesh/peerq/internal/mq"
	"github.com/netmesh/peerq/internal/peer"
	"github.com/netmesh/peerq/internal/registry"
)

type nopTX struct{}

func (nopTX) Free()           {}
func (nopTX) ServiceEnable()  {}
func (nopTX) ServiceDisable() {}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestRegistry() *registry.Registry {
	txf := func(peer.ID) mq.TXDriver { return nopTX{} }
	cfg := mq.Config{MaxSize: 1000, HiWatermark: 800, LoWatermark: 400}
	return registry.New(txf, cfg, testLogger(),
		registry.WithEvictionInterval(time.Hour),
		registry.WithIdleTimeout(time.Hour))
}

func TestHandleHealthz(t *testing.T) {
	reg := newTestRegistry()
	defer reg.Shutdown()
	srv := NewServer(reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v, want ok", body["status"])
	}
}

func TestHandleListPeers(t *testing.T) {
	reg := newTestRegistry()
	defer reg.Shutdown()

	id := uuid.New()
	if _, err := reg.GetOrCreate(id); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(reg, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/peers", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var summaries []peerSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != id {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestHandleGetPeerNotFound(t *testing.T) {
	reg := newTestRegistry()
	defer reg.Shutdown()
	srv := NewServer(reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/peers/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleGetPeerInvalidID(t *testing.T) {
	reg := newTestRegistry()
	defer reg.Shutdown()
	srv := NewServer(reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/peers/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
