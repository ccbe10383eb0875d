// Package liveness persists per-endpoint alive/dead markers in Redis so
// that dead-marking survives process restarts and is shared between worker
// processes. Records expire after a TTL, which is what makes a dead-marked
// endpoint eligible for reconnection again.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status is the persisted health state of one endpoint.
type Status string

const (
	StatusAlive Status = "alive"
	StatusDead  Status = "dead"

	// StatusUnknown means no record exists; the endpoint is assumed
	// reachable.
	StatusUnknown Status = ""
)

const keyPrefix = "vcbridge:endpoint:"

var (
	// ErrInvalidName is returned when an endpoint name fails validation.
	ErrInvalidName = errors.New("invalid endpoint name")

	// ErrUnavailable is returned when the store itself cannot be reached.
	// It is deliberately distinct from any endpoint state: a store outage
	// must never read as "endpoint dead".
	ErrUnavailable = errors.New("liveness store unavailable")
)

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Store is a Redis-backed liveness record store.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New creates a store around an existing Redis client. The ttl applies to
// every record written.
func New(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func validateName(name string) error {
	if name == "" || !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Set writes the status for an endpoint with the store TTL. With
// onlyIfAbsent, the write is a conditional SET NX that leaves an existing
// record untouched.
func (s *Store) Set(ctx context.Context, name string, status Status, onlyIfAbsent bool) error {
	if err := validateName(name); err != nil {
		return err
	}

	key := keyPrefix + name
	var err error
	if onlyIfAbsent {
		err = s.client.SetNX(ctx, key, string(status), s.ttl).Err()
	} else {
		err = s.client.Set(ctx, key, string(status), s.ttl).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrUnavailable, name, err)
	}
	return nil
}

// Get returns the recorded status for an endpoint. A missing record is
// StatusUnknown, not an error.
func (s *Store) Get(ctx context.Context, name string) (Status, error) {
	if err := validateName(name); err != nil {
		return StatusUnknown, err
	}

	val, err := s.client.Get(ctx, keyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return StatusUnknown, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("%w: get %s: %w", ErrUnavailable, name, err)
	}
	return Status(val), nil
}

// IsDead reports whether the endpoint has an explicit dead record. Unknown
// means not dead.
func (s *Store) IsDead(ctx context.Context, name string) (bool, error) {
	status, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return status == StatusDead, nil
}

// GetAll scans every liveness record and returns name -> status.
func (s *Store) GetAll(ctx context.Context) (map[string]Status, error) {
	out := make(map[string]Status)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrUnavailable, err)
		}

		for _, key := range keys {
			val, err := s.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue // expired between scan and get
			}
			if err != nil {
				return nil, fmt.Errorf("%w: get %s: %w", ErrUnavailable, key, err)
			}
			out[strings.TrimPrefix(key, keyPrefix)] = Status(val)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// RemoveAll deletes every liveness record, forcing reconnection attempts on
// the next acquire pass. This backs the administrative reset operation.
func (s *Store) RemoveAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("%w: scan: %w", ErrUnavailable, err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: del: %w", ErrUnavailable, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
