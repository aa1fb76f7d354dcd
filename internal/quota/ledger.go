// Package quota keeps the daily allowance of remote API calls.
//
// All mutation goes through a load, transform, store cycle against a
// pluggable Backend. Within a process the cycle is serialized; across
// processes sharing one backend it is not, and concurrent writers can lose
// updates.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/quote-vault/internal/model"

	"go.uber.org/zap"
)

// ErrQuotaExhausted is returned when no calls remain for the current day
var ErrQuotaExhausted = errors.New("daily API quota exhausted")

// Backend persists a single QuotaState
type Backend interface {
	// Load returns the stored state; found is false when nothing was stored yet
	Load(ctx context.Context) (state model.QuotaState, found bool, err error)

	// Store replaces the stored state
	Store(ctx context.Context, state model.QuotaState) error
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock overrides the wall clock used to decide the current day
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger attaches a logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Ledger enforces the daily call limit
type Ledger struct {
	backend Backend
	limit   int
	now     func() time.Time
	logger  *zap.Logger

	mu sync.Mutex
}

// NewLedger creates a ledger over backend. A non-positive limit falls back to model.DefaultDailyLimit.
func NewLedger(backend Backend, limit int, opts ...Option) *Ledger {
	if limit <= 0 {
		limit = model.DefaultDailyLimit
	}
	l := &Ledger{
		backend: backend,
		limit:   limit,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured daily allowance
func (l *Ledger) Limit() int { return l.limit }

// Peek returns the current state with day rollover applied to the returned
// value only. Nothing is persisted.
func (l *Ledger) Peek(ctx context.Context) (model.QuotaState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, _, err := l.current(ctx)
	return state, err
}

// CheckAndReserve fails with ErrQuotaExhausted when no call remains today.
// The reservation is implicit: the caller spends it with CommitDecrement.
func (l *Ledger) CheckAndReserve(ctx context.Context) (model.QuotaState, error) {
	state, err := l.Peek(ctx)
	if err != nil {
		return state, err
	}
	if state.Remaining <= 0 {
		return state, exhausted(state)
	}
	return state, nil
}

// CommitDecrement spends one call and persists the result.
// When the allowance is already used up the stored state is left untouched.
func (l *Ledger) CommitDecrement(ctx context.Context) (model.QuotaState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, rolled, err := l.current(ctx)
	if err != nil {
		return state, err
	}
	if state.Remaining <= 0 {
		l.logger.Warn("API quota exhausted",
			zap.Int("limit", state.Limit),
			zap.String("last_update", state.LastReset.String()))
		return state, exhausted(state)
	}

	state.Remaining--
	if err := l.backend.Store(ctx, state); err != nil {
		l.logger.Error("Failed to persist quota state", zap.Error(err))
		return state, fmt.Errorf("store quota state: %w", err)
	}

	l.logger.Debug("API call recorded",
		zap.Int("remaining", state.Remaining),
		zap.Int("limit", state.Limit),
		zap.Bool("rolled_over", rolled))
	return state, nil
}

// current loads the stored state and applies the day rollover in memory.
// rolled reports whether a fresh state replaced the stored one.
func (l *Ledger) current(ctx context.Context) (model.QuotaState, bool, error) {
	today := model.DateOf(l.now())

	state, found, err := l.backend.Load(ctx)
	if err != nil {
		l.logger.Error("Failed to load quota state", zap.Error(err))
		return model.QuotaState{}, false, fmt.Errorf("load quota state: %w", err)
	}
	if !found {
		return model.FreshQuota(l.limit, today), true, nil
	}

	if !state.LastReset.Equal(today) {
		if state.LastReset.After(today) {
			l.logger.Warn("Stored quota date is ahead of the clock",
				zap.String("last_update", state.LastReset.String()),
				zap.String("today", today.String()))
		}
		return model.FreshQuota(l.limit, today), true, nil
	}

	return l.normalize(state), false, nil
}

// normalize enforces 0 <= remaining <= limit on a same-day state
func (l *Ledger) normalize(state model.QuotaState) model.QuotaState {
	if state.Limit <= 0 {
		state.Limit = l.limit
	}
	if state.Remaining > state.Limit {
		state.Remaining = state.Limit
	}
	if state.Remaining < 0 {
		state.Remaining = 0
	}
	return state
}

func exhausted(state model.QuotaState) error {
	return fmt.Errorf("%w: %d of %d calls used on %s", ErrQuotaExhausted, state.Used(), state.Limit, state.LastReset)
}
