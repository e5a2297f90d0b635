package grpc

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	infragrpc "github.com/netmesh/peerq/infra/server/grpc"
	"github.com/netmesh/peerq/internal/mq"
	"github.com/netmesh/peerq/internal/peer"
	"github.com/netmesh/peerq/internal/registry"
)

type nopTX struct{}

func (nopTX) Free()           {}
func (nopTX) ServiceEnable()  {}
func (nopTX) ServiceDisable() {}

func TestRegisterHealthReportsServing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := infragrpc.New(infragrpc.Config{Addr: ":0"}, logger)
	txf := func(peer.ID) mq.TXDriver { return nopTX{} }
	reg := registry.New(txf, mq.Config{MaxSize: 1000, HiWatermark: 800, LoWatermark: 400}, logger,
		registry.WithEvictionInterval(time.Hour), registry.WithIdleTimeout(time.Hour))
	defer reg.Shutdown()

	h := RegisterHealth(srv, reg, logger)
	defer h.Shutdown()

	resp, err := h.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.Status)
	}
}
