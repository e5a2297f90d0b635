package cmd

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"

	amqphandler "github.com/netmesh/peerq/internal/handler/amqp"
	grpchandler "github.com/netmesh/peerq/internal/handler/grpc"
	httphandler "github.com/netmesh/peerq/internal/handler/http"

	infragrpc "github.com/netmesh/peerq/infra/server/grpc"

	"github.com/netmesh/peerq/internal/config"
	"github.com/netmesh/peerq/internal/logging"
	"github.com/netmesh/peerq/internal/metrics"
	"github.com/netmesh/peerq/internal/mq"
	"github.com/netmesh/peerq/internal/peer"
	"github.com/netmesh/peerq/internal/registry"
	"github.com/netmesh/peerq/internal/txdriver"
)

// ProvideResource builds the OTel resource every provider below tags its
// output with: the service name, giving the metrics/logs a consistent
// `service.name` attribute without the automatic host/process detection
// resource.New performs (which this daemon has no use for).
func ProvideResource(cfg *config.Config) *resource.Resource {
	return resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(cfg.ServiceName))
}

// ProvideLoggerProvider builds a local, exporter-less OTel log provider.
// A real deployment would attach an OTLP log exporter here; this is the
// same documented seam as ProvideMeterProvider below.
func ProvideLoggerProvider(res *resource.Resource) *sdklog.LoggerProvider {
	return sdklog.NewLoggerProvider(sdklog.WithResource(res))
}

// ProvideLogger builds the process logger the way the teacher wires it:
// one constructor, invoked once, handed to every module through fx.
func ProvideLogger(cfg *config.Config, lp *sdklog.LoggerProvider) *slog.Logger {
	return logging.New(logging.Options{
		ServiceName:    cfg.ServiceName,
		JSON:           !cfg.Debug,
		Debug:          cfg.Debug,
		LoggerProvider: lp,
	})
}

// ProvideMeterProvider builds a local, exporter-less SDK meter provider.
// A real deployment would attach an OTLP exporter here; this is the
// documented seam (DESIGN.md notes this as the ambient metrics entry
// point, not a gap).
func ProvideMeterProvider(res *resource.Resource) *sdkmetric.MeterProvider {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)
	return mp
}

func ProvideMeter(mp *sdkmetric.MeterProvider, cfg *config.Config) metric.Meter {
	return mp.Meter(cfg.ServiceName)
}

// ProvideTXFactory builds the stand-in TXDriver every new peer's queue
// writes through. Wire protocol / socket handling are out of scope, so a
// labeled stub is all any peer needs (internal/txdriver's whole reason to
// exist).
func ProvideTXFactory(logger *slog.Logger) registry.TXFactory {
	return func(id peer.ID) mq.TXDriver {
		return txdriver.New(id.String(), logger)
	}
}

// ProvideQueueConfig adapts config.Watermarks into mq.Config.
func ProvideQueueConfig(cfg *config.Config) mq.Config {
	return mq.Config{
		MaxSize:     cfg.Watermarks.MaxSize,
		HiWatermark: cfg.Watermarks.HiWatermark,
		LoWatermark: cfg.Watermarks.LoWatermark,
	}
}

// ProvideRegistry builds the peer registry and fans its diagnostics bus
// into the OTel metrics recorder, since a Registry can only name one
// EventSink per peer and the bus is that sink -- Recorder subscribes to the
// bus rather than displacing it.
func ProvideRegistry(
	lc fx.Lifecycle,
	cfg *config.Config,
	queueCfg mq.Config,
	txFactory registry.TXFactory,
	logger *slog.Logger,
	meter metric.Meter,
) (*registry.Registry, error) {
	reg := registry.New(txFactory, queueCfg, logger,
		registry.WithBacklog(cfg.PeerBacklog),
		registry.WithEvictionInterval(cfg.EvictionInterval),
		registry.WithIdleTimeout(cfg.IdleTimeout),
		registry.WithSwift(cfg.Swift.GraceSeconds, cfg.Swift.PeriodSeconds))

	recorder, err := metrics.New(meter)
	if err != nil {
		return nil, err
	}
	events := make(chan peer.Event, 256)
	unsubscribe := reg.Bus().Subscribe(events)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			recorder.OnPeerEvent(ev)
		}
	}()

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			unsubscribe()
			close(events)
			<-done
			reg.Shutdown()
			return nil
		},
	})
	return reg, nil
}

func ProvideAMQPConfig(cfg *config.Config) amqphandler.Config {
	return amqphandler.Config{URL: cfg.AMQP.URL, QueueName: cfg.AMQP.QueueName}
}

func ProvideHTTPConfig(cfg *config.Config) httphandler.Config {
	return httphandler.Config{Addr: cfg.HTTPAddr}
}

func ProvideGRPCConfig(cfg *config.Config) infragrpc.Config {
	return infragrpc.Config{Addr: cfg.GRPCAddr}
}

// NewApp assembles the full daemon: config, logging, metrics, the peer
// registry, and the three transport-facing modules (AMQP ingest, HTTP
// diagnostics, admin gRPC health).
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideResource,
			ProvideLoggerProvider,
			ProvideLogger,
			ProvideMeterProvider,
			ProvideMeter,
			ProvideTXFactory,
			ProvideQueueConfig,
			ProvideRegistry,
			ProvideAMQPConfig,
			ProvideHTTPConfig,
			ProvideGRPCConfig,
		),
		infragrpc.Module,
		grpchandler.Module,
		httphandler.Module,
		amqphandler.Module,
	)
}
