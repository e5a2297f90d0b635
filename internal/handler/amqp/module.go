package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/netmesh/peerq/internal/registry"
)

// Config names the AMQP connection and queue this module consumes from.
type Config struct {
	URL       string
	QueueName string
}

// NewRouter builds a watermill Router with a single no-publisher handler
// bound to cfg.QueueName, ingesting straight into reg via an Ingestor.
// Mirrors the teacher's deleted router.go: one router built with
// watermill.NewSlogLogger, handlers registered by name, middleware for
// recovery -- stripped down to just recovery here since there's no
// downstream publish to correlate against.
func NewRouter(cfg Config, reg *registry.Registry, policy EnqueuePolicy, logger *slog.Logger) (*message.Router, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(middlewareRecover(logger))

	subscriber, err := amqp.NewSubscriber(
		amqp.NewDurableQueueConfig(cfg.URL),
		wmLogger,
	)
	if err != nil {
		return nil, err
	}

	ingestor := NewIngestor(reg, policy, logger)
	router.AddNoPublisherHandler(
		"peerq-ingest",
		cfg.QueueName,
		subscriber,
		ingestor.Handle,
	)
	return router, nil
}

// Module wires NewRouter into an fx app and runs it for the process
// lifetime, matching the teacher's deleted module.go's OnStart/OnStop
// fx.Hook shape.
var Module = fx.Module("amqp-ingest",
	fx.Invoke(func(lc fx.Lifecycle, cfg Config, reg *registry.Registry, logger *slog.Logger) error {
		router, err := NewRouter(cfg, reg, JSONEnvelopePolicy{}, logger)
		if err != nil {
			return err
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := router.Run(context.Background()); err != nil {
						logger.Error("amqp router run error", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				return router.Close()
			},
		})
		return nil
	}),
)

func middlewareRecover(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) (out []*message.Message, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("amqp router handler panicked", "recover", r)
					err = nil
				}
			}()
			return h(msg)
		}
	}
}
