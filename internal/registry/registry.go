// Package registry tracks every connected peer's Peer/mq.Queue pair,
// generalizing the teacher's Hub/Cell actor registry (sync.Map of actors,
// idle-eviction janitor, functional-options construction) from "per-user
// chat mailbox" to "per-peer outbound message queue".
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/netmesh/peerq/internal/mq"
	"github.com/netmesh/peerq/internal/peer"
)

// TXFactory builds the TXDriver a new peer's queue should write through.
// The registry doesn't know or care what concrete transport this is --
// wire protocol and socket handling are explicitly out of scope (spec.md
// §1 Non-goals).
type TXFactory func(id peer.ID) mq.TXDriver

// Registry owns every active Peer, keyed by ID, and reclaims idle ones on a
// timer. Grounded on the teacher's Hub: a sync.Map of actors plus a janitor
// goroutine, functional options for construction, idempotent
// register/unregister.
type Registry struct {
	peers sync.Map // peer.ID -> *peer.Peer

	evictionInterval time.Duration
	idleTimeout      time.Duration
	backlog          int
	nameCacheSize    int
	swiftGrace       int
	swiftPeriod      int

	txFactory       TXFactory
	queueCfg        mq.Config
	mqOpts          []mq.Option
	pendingResolver NameResolver
	resolver        *breakerResolver
	bus             *EventBus
	logger          *slog.Logger

	stopCh chan struct{}
	stopMu sync.Once
}

// New builds a Registry and starts its eviction janitor.
func New(txFactory TXFactory, queueCfg mq.Config, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		evictionInterval: time.Minute,
		idleTimeout:      5 * time.Minute,
		backlog:          256,
		nameCacheSize:    4096,
		swiftGrace:       10,
		swiftPeriod:      2,
		txFactory:        txFactory,
		queueCfg:         queueCfg,
		bus:              NewEventBus(),
		logger:           logger,
		stopCh:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.pendingResolver != nil {
		r.resolver = newBreakerResolver(r.pendingResolver, r.nameCacheSize)
	}
	go r.runEvictor()
	return r
}

// Bus returns the registry's shared diagnostics event bus.
func (r *Registry) Bus() *EventBus { return r.bus }

// Get returns the peer for id, if one is already registered.
func (r *Registry) Get(id peer.ID) (*peer.Peer, bool) {
	v, ok := r.peers.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*peer.Peer), true
}

// GetOrCreate returns the existing peer for id, or atomically creates one.
// Mirrors the teacher's Hub.Register idempotent LoadOrStore pattern.
func (r *Registry) GetOrCreate(id peer.ID) (*peer.Peer, error) {
	if p, ok := r.Get(id); ok {
		return p, nil
	}
	p, err := peer.New(peer.Config{
		ID:            id,
		TX:            r.txFactory(id),
		Queue:         r.queueCfg,
		Sink:          r.bus,
		MQOpts:        r.mqOpts,
		Backlog:       r.backlog,
		GraceSeconds:  r.swiftGrace,
		PeriodSeconds: r.swiftPeriod,
	})
	if err != nil {
		return nil, err
	}
	actual, loaded := r.peers.LoadOrStore(id, p)
	if loaded {
		// Lost the race to another goroutine constructing the same peer;
		// discard ours.
		p.Close()
		return actual.(*peer.Peer), nil
	}
	return p, nil
}

// Remove closes and forgets the peer for id, if present.
func (r *Registry) Remove(id peer.ID) {
	if v, ok := r.peers.LoadAndDelete(id); ok {
		v.(*peer.Peer).Close()
	}
}

// ResolveName looks up a display name for id through the configured
// NameResolver, if any.
func (r *Registry) ResolveName(ctx context.Context, id peer.ID) (string, error) {
	if r.resolver == nil {
		return "", ErrNoResolver
	}
	return r.resolver.ResolveName(ctx, id)
}

// Count returns the number of currently registered peers.
func (r *Registry) Count() int {
	n := 0
	r.peers.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Range visits every registered peer. f returning false stops iteration
// early.
func (r *Registry) Range(f func(id peer.ID, p *peer.Peer) bool) {
	r.peers.Range(func(k, v any) bool {
		return f(k.(peer.ID), v.(*peer.Peer))
	})
}

func (r *Registry) runEvictor() {
	ticker := time.NewTicker(r.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	reaped := 0
	r.peers.Range(func(k, v any) bool {
		p := v.(*peer.Peer)
		stats, ok := p.Stats()
		if !ok {
			r.peers.Delete(k)
			return true
		}
		if stats.Count == 0 && p.IdleSince() > r.idleTimeout {
			p.Close()
			r.peers.Delete(k)
			reaped++
		}
		return true
	})
	if reaped > 0 && r.logger != nil {
		r.logger.Info("registry eviction swept idle peers", "reaped", reaped)
	}
}

// Shutdown stops the janitor and closes every registered peer. Peers are
// closed concurrently -- each Close() drains that peer's command channel
// before returning, so closing thousands of peers sequentially on process
// shutdown would serialize on the slowest one for no reason.
func (r *Registry) Shutdown() {
	r.stopMu.Do(func() { close(r.stopCh) })

	var g errgroup.Group
	r.peers.Range(func(k, v any) bool {
		p := v.(*peer.Peer)
		g.Go(func() error {
			p.Close()
			return nil
		})
		r.peers.Delete(k)
		return true
	})
	_ = g.Wait()
}
