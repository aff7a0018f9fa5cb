// Package idempotency keeps at-least-once event delivery from producing
// duplicate side effects. A consumer leases an event before handling it and
// converts the lease into a long-lived processed marker once the handler
// commits.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	processedValue = "done"
	leasePrefix    = "lease:"

	DefaultLease = 5 * time.Minute
)

// ErrLeaseLost means the lease expired and another worker claimed the event
// before Complete ran. The side effect may have happened twice.
var ErrLeaseLost = errors.New("idempotency lease lost")

// Store is the Redis surface the manager needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndSwap(ctx context.Context, key, current, next string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, owner string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// State is what Begin found for an event.
type State int

const (
	// Acquired: this caller holds the lease and must Complete or Release it.
	Acquired State = iota
	// InFlight: another worker holds an unexpired lease.
	InFlight
	// Processed: a previous delivery already completed.
	Processed
)

func (s State) String() string {
	switch s {
	case Acquired:
		return "acquired"
	case InFlight:
		return "in_flight"
	case Processed:
		return "processed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Manager struct {
	store     Store
	retention time.Duration
	lease     time.Duration
}

// NewManager keeps processed markers for retention and gives each handler
// lease to finish. A zero lease uses DefaultLease.
func NewManager(store Store, retention, lease time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if retention <= 0 {
		return nil, errors.New("retention must be positive")
	}
	if lease <= 0 {
		lease = DefaultLease
	}
	if lease > retention {
		return nil, fmt.Errorf("lease %s exceeds retention %s", lease, retention)
	}
	return &Manager{store: store, retention: retention, lease: lease}, nil
}

// Claim is a held lease on one (consumer, event) pair.
type Claim struct {
	m     *Manager
	key   string
	token string
}

// Begin tries to lease the event for consumer. The returned claim is non-nil
// only when the state is Acquired.
func (m *Manager) Begin(ctx context.Context, consumer string, eventID uuid.UUID) (*Claim, State, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return nil, 0, err
	}
	token := leasePrefix + uuid.NewString()

	// A lease can expire between SetNX and Get; one retry settles that race.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := m.store.SetNX(ctx, key, token, m.lease)
		if err != nil {
			return nil, 0, fmt.Errorf("lease %s: %w", key, err)
		}
		if ok {
			return &Claim{m: m, key: key, token: token}, Acquired, nil
		}

		current, err := m.store.Get(ctx, key)
		switch {
		case errors.Is(err, goredis.Nil):
			continue
		case err != nil:
			return nil, 0, fmt.Errorf("inspect %s: %w", key, err)
		case current == processedValue:
			return nil, Processed, nil
		case strings.HasPrefix(current, leasePrefix):
			return nil, InFlight, nil
		default:
			return nil, 0, fmt.Errorf("unexpected idempotency value %q at %s", current, key)
		}
	}
	return nil, InFlight, nil
}

// Complete records the event as processed for the manager's retention.
func (c *Claim) Complete(ctx context.Context) error {
	ok, err := c.m.store.CompareAndSwap(ctx, c.key, c.token, processedValue, c.m.retention)
	if err != nil {
		return fmt.Errorf("complete %s: %w", c.key, err)
	}
	if !ok {
		return ErrLeaseLost
	}
	return nil
}

// Release drops the lease so a redelivery can retry right away.
func (c *Claim) Release(ctx context.Context) error {
	if _, err := c.m.store.CompareAndDelete(ctx, c.key, c.token); err != nil {
		return fmt.Errorf("release %s: %w", c.key, err)
	}
	return nil
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
