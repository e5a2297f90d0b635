// Package grpc builds the shared *grpc.Server instance every gRPC service
// module registers against, grounded on the teacher's infra/server/grpc
// layering (a server construction package separate from any one service's
// handler package, with interceptors wired centrally).
package grpc

import (
	"log/slog"

	recovery "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// Config names the gRPC listen address.
type Config struct {
	Addr string
}

// Server wraps the shared *grpc.Server plus the address it will listen on.
type Server struct {
	Server *grpc.Server
	Addr   string
}

// New builds a Server instrumented with otelgrpc tracing/metrics and a
// panic-recovery interceptor, matching the spirit of the teacher's
// stream_auth.go interceptor wiring (there, auth; here, recovery, since
// this surface is read-only and unauthenticated by design -- see the
// package doc on internal/handler/http for the same trusted-network
// posture).
func New(cfg Config, logger *slog.Logger) *Server {
	recoveryOpt := recovery.WithRecoveryHandler(func(p any) error {
		logger.Error("grpc handler panicked", "recover", p)
		return nil
	})

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(recovery.UnaryServerInterceptor(recoveryOpt)),
		grpc.ChainStreamInterceptor(recovery.StreamServerInterceptor(recoveryOpt)),
	)
	return &Server{Server: srv, Addr: cfg.Addr}
}
