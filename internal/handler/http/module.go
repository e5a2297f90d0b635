package http

import (
	"context"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/netmesh/peerq/internal/registry"
)

// Config names the listen address for the diagnostics surface.
type Config struct {
	Addr string
}

// Module wires Server into an fx app's lifecycle, matching the teacher's
// other handler modules' fx.Hook-based start/stop shape.
var Module = fx.Module("http-diagnostics",
	fx.Invoke(func(lc fx.Lifecycle, cfg Config, reg *registry.Registry, logger *slog.Logger) {
		srv := &http.Server{Addr: cfg.Addr, Handler: NewServer(reg, logger)}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("diagnostics http server error", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}),
)
