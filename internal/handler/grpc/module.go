package grpc

import (
	"log/slog"

	"go.uber.org/fx"

	infragrpc "github.com/netmesh/peerq/infra/server/grpc"
	"github.com/netmesh/peerq/internal/registry"
)

// Module registers the health service against the shared infra/server/grpc
// Server, the same fx.Invoke-registers-onto-shared-server shape the teacher
// uses for its (deleted) DeliveryService.
var Module = fx.Module("admin-grpc",
	fx.Invoke(func(srv *infragrpc.Server, reg *registry.Registry, logger *slog.Logger) {
		RegisterHealth(srv, reg, logger)
	}),
)
