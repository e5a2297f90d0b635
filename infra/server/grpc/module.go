package grpc

import (
	"context"
	"log/slog"
	"net"

	"go.uber.org/fx"
)

// Module provides the shared *Server and runs its listener for the process
// lifetime, matching the teacher's fx.Hook-based OnStart/OnStop pattern used
// across every server/handler module in this tree.
var Module = fx.Module("grpc-server",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, srv *Server, logger *slog.Logger) error {
		lis, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := srv.Server.Serve(lis); err != nil {
						logger.Error("grpc server error", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				srv.Server.GracefulStop()
				return nil
			},
		})
		return nil
	}),
)
