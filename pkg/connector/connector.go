// Package connector owns the pool of authenticated sessions to the
// configured vCenter endpoints. It probes existing sessions, reconnects with
// bounded retries, and dead-marks endpoints in the shared liveness store so
// that every worker process skips them until the mark expires.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"vcbridge/pkg/config"
	"vcbridge/pkg/liveness"
	"vcbridge/pkg/log"
	"vcbridge/pkg/vsphere"
)

// ErrAuthFailure is returned by AcquireSessions when an endpoint rejects the
// configured credentials. Bad credentials are operator error, not a
// transient fault: the caller is expected to treat this as fatal.
var ErrAuthFailure = errors.New("endpoint authentication failed")

// Pool maintains one session per endpoint. It is application-scoped and
// injected into every consumer; there is no package-level state.
type Pool struct {
	mu       sync.RWMutex
	sessions map[string]vsphere.Client

	endpoints *config.Endpoints
	dialer    vsphere.Dialer
	store     *liveness.Store
	settings  config.Settings
}

// New creates a session pool. No connections are opened until the first
// AcquireSessions call.
func New(endpoints *config.Endpoints, dialer vsphere.Dialer, store *liveness.Store, settings config.Settings) *Pool {
	return &Pool{
		sessions:  make(map[string]vsphere.Client),
		endpoints: endpoints,
		dialer:    dialer,
		store:     store,
		settings:  settings,
	}
}

// Endpoints returns the configured endpoint set.
func (p *Pool) Endpoints() *config.Endpoints {
	return p.endpoints
}

// Store returns the shared liveness store.
func (p *Pool) Store() *liveness.Store {
	return p.store
}

// AcquireSessions ensures a usable session for every endpoint that is not
// dead-marked and returns them keyed by endpoint name. Endpoints that are
// dead-marked, or that exhaust their reconnect budget during this pass, are
// absent from the result. The only error returned is ErrAuthFailure (wrapped
// with the endpoint name) and liveness-store outages; both are exceptional
// and end the whole pass.
//
// The operation is idempotent and cheap for endpoints that are already
// alive: a single liveness probe per endpoint.
func (p *Pool) AcquireSessions(ctx context.Context) (map[string]vsphere.Client, error) {
	acquired := make(map[string]vsphere.Client)

	for _, name := range p.endpoints.Names() {
		ep, _ := p.endpoints.Get(name)

		dead, err := p.store.IsDead(ctx, name)
		if err != nil {
			return nil, err
		}
		if dead {
			log.Debug().Str("endpoint", name).Msg("Endpoint is dead-marked, skipping")
			continue
		}

		if session := p.session(name); session != nil {
			probeCtx, cancel := context.WithTimeout(ctx, p.settings.ConnectTimeout)
			_, probeErr := session.CurrentTime(probeCtx)
			cancel()

			if probeErr == nil {
				p.markAlive(ctx, name)
				acquired[name] = session
				continue
			}
			log.Warn().Err(probeErr).Str("endpoint", name).Msg("Liveness probe failed, reconnecting")
		}

		session, err := p.reconnect(ctx, ep)
		if err != nil {
			fault := vsphere.Classify(err)
			if fault.Kind == vsphere.FaultAuth {
				return nil, fmt.Errorf("%w: %s: %w", ErrAuthFailure, name, err)
			}

			log.Error().
				Err(err).
				Str("endpoint", name).
				Str("fault", fault.Kind.String()).
				Int("attempts", p.settings.MaxRetries).
				Msg("Reconnect attempts exhausted, dead-marking endpoint")
			p.markDead(ctx, name)
			continue
		}

		p.setSession(ctx, name, session)
		p.markAlive(ctx, name)
		acquired[name] = session
	}

	return acquired, nil
}

// reconnect opens a new session with a bounded number of attempts, sleeping
// the configured retry interval between them. An authentication failure
// aborts immediately.
func (p *Pool) reconnect(ctx context.Context, ep config.Endpoint) (vsphere.Client, error) {
	attempt := 0
	operation := func() (vsphere.Client, error) {
		attempt++
		log.Debug().Str("endpoint", ep.Name).Int("attempt", attempt).Msg("Connecting to endpoint")

		session, err := p.dialer.Dial(ctx, ep)
		if err != nil {
			fault := vsphere.Classify(err)
			if !fault.Kind.Retryable() {
				return nil, backoff.Permanent(fault)
			}
			return nil, fault
		}
		return session, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.settings.RetryInterval)),
		backoff.WithMaxTries(uint(p.settings.MaxRetries)),
	)
}

func (p *Pool) session(name string) vsphere.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessions[name]
}

// setSession replaces the session for one endpoint. Two concurrent
// reconnects for the same endpoint are tolerated: the loser's session is
// closed and the winner's kept (last writer wins).
func (p *Pool) setSession(ctx context.Context, name string, session vsphere.Client) {
	p.mu.Lock()
	old := p.sessions[name]
	p.sessions[name] = session
	p.mu.Unlock()

	if old != nil && old != session {
		if err := old.Close(ctx); err != nil {
			log.Debug().Err(err).Str("endpoint", name).Msg("Failed to close replaced session")
		}
	}
}

func (p *Pool) markAlive(ctx context.Context, name string) {
	if err := p.store.Set(ctx, name, liveness.StatusAlive, false); err != nil {
		log.Warn().Err(err).Str("endpoint", name).Msg("Failed to refresh alive record")
	}
}

// markDead overwrites whatever record exists, including a stale alive entry
// from before the endpoint went down, so other workers skip it right away.
func (p *Pool) markDead(ctx context.Context, name string) {
	if err := p.store.Set(ctx, name, liveness.StatusDead, false); err != nil {
		log.Warn().Err(err).Str("endpoint", name).Msg("Failed to write dead record")
	}
}

// Close disconnects every session. Called at shutdown.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, session := range p.sessions {
		if err := session.Close(ctx); err != nil {
			log.Warn().Err(err).Str("endpoint", name).Msg("Failed to disconnect session")
		}
		delete(p.sessions, name)
	}
}
