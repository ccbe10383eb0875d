// Package aggregate fans a read out over every live vCenter session and
// merges the partial results into one list. Concurrency is bounded by a
// process-wide worker pool so that a burst of API requests cannot open an
// unbounded number of inventory queries.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"vcbridge/pkg/config"
	"vcbridge/pkg/connector"
	"vcbridge/pkg/log"
	"vcbridge/pkg/vsphere"
)

var (
	// ErrEndpointNotFound is returned when a request names a vCenter that
	// is not configured at all.
	ErrEndpointNotFound = errors.New("no such vcenter endpoint")

	// ErrEndpointUnavailable is returned when a request names a configured
	// vCenter that currently has no usable session.
	ErrEndpointUnavailable = errors.New("vcenter endpoint unavailable")
)

// FetchFunc retrieves one endpoint's slice of some inventory type.
type FetchFunc[T any] func(ctx context.Context, name string, client vsphere.Client) ([]T, error)

// Result is the merged outcome of one fan-out pass.
type Result[T any] struct {
	Items []T
	// Total is the number of items across all endpoints that answered,
	// before any offset/limit windowing.
	Total int
	// Sessions is the number of endpoints that held a usable session for
	// this pass, reported to clients for observability.
	Sessions int
}

// Fanout owns the shared worker pool. One instance is created at startup
// and reused for every request.
type Fanout struct {
	pool     *connector.Pool
	workers  *semaphore.Weighted
	capacity int
}

// New creates a Fanout on top of the session pool. MaxWorkers bounds the
// number of concurrent endpoint queries across all requests; PerEndpointCap
// bounds how many items a single endpoint may contribute.
func New(pool *connector.Pool, settings config.Settings) *Fanout {
	return &Fanout{
		pool:     pool,
		workers:  semaphore.NewWeighted(int64(settings.MaxWorkers)),
		capacity: settings.PerEndpointCap,
	}
}

// Pool returns the underlying session pool.
func (f *Fanout) Pool() *connector.Pool {
	return f.pool
}

// Collect acquires sessions and runs fetch against each endpoint, merging
// partials in endpoint configuration order so the merged list is stable
// across requests. When selected is non-empty only that endpoint is
// queried, and its failure propagates to the caller; in the fan-out case a
// failing endpoint is logged and simply contributes nothing.
func Collect[T any](ctx context.Context, f *Fanout, selected string, fetch FetchFunc[T]) (*Result[T], error) {
	sessions, err := f.pool.AcquireSessions(ctx)
	if err != nil {
		return nil, err
	}

	if selected != "" {
		return collectOne(ctx, f, sessions, selected, fetch)
	}

	names := f.pool.Endpoints().Names()
	partials := make([][]T, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		client, ok := sessions[name]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(i int, name string, client vsphere.Client) {
			defer wg.Done()

			if err := f.workers.Acquire(ctx, 1); err != nil {
				log.Warn().Err(err).Str("vcenter", name).Msg("Fan-out cancelled before worker slot")
				return
			}
			defer f.workers.Release(1)

			items, err := fetch(ctx, name, client)
			if err != nil {
				log.Error().Err(err).Str("vcenter", name).Msg("Endpoint query failed, dropping partial result")
				return
			}
			partials[i] = capped(items, f.capacity)
		}(i, name, client)
	}
	wg.Wait()

	result := &Result[T]{Sessions: len(sessions)}
	for _, partial := range partials {
		result.Items = append(result.Items, partial...)
	}
	result.Total = len(result.Items)
	return result, nil
}

func collectOne[T any](ctx context.Context, f *Fanout, sessions map[string]vsphere.Client, selected string, fetch FetchFunc[T]) (*Result[T], error) {
	if !f.pool.Endpoints().Has(selected) {
		return nil, fmt.Errorf("%w: %s", ErrEndpointNotFound, selected)
	}
	client, ok := sessions[selected]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEndpointUnavailable, selected)
	}

	if err := f.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.workers.Release(1)

	items, err := fetch(ctx, selected, client)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selected, err)
	}

	items = capped(items, f.capacity)
	return &Result[T]{Items: items, Total: len(items), Sessions: len(sessions)}, nil
}

func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// Pagination describes the window a response covers. HasNext is a
// heuristic: a full window is assumed to have a successor, which
// overreports by one page when the total is an exact multiple of the limit.
type Pagination struct {
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
	Total       int  `json:"totalCount"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// Page applies the global offset/limit window to a merged list. An offset
// at or past the end yields an empty window while Total still reports the
// full merged count.
func Page[T any](items []T, offset, limit int) ([]T, Pagination) {
	total := len(items)

	var window []T
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		window = items[offset:end]
	}

	return window, Pagination{
		Offset:      offset,
		Limit:       limit,
		Total:       total,
		HasNext:     len(window) == limit && limit > 0,
		HasPrevious: offset > 0,
	}
}
