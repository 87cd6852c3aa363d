// Package health tracks whether the persistence backend is usable. While the
// breaker is compromised every store call is served from the simulated
// dataset instead of Postgres and Redis.
package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

type State int32

const (
	Healthy State = iota
	Compromised
)

const (
	ModeLive      = "live"
	ModeSimulated = "simulated"
)

func (s State) String() string {
	if s == Compromised {
		return "compromised"
	}
	return "healthy"
}

var (
	backendCompromised = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rakshak_backend_compromised",
		Help: "1 while the persistence backend is treated as unavailable",
	})
	breakerTrips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rakshak_backend_trips_total",
		Help: "Number of healthy to compromised transitions",
	})
)

// Check is a named liveness probe of one backend dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Status is a point-in-time view of the breaker.
type Status struct {
	State  string     `json:"state"`
	Mode   string     `json:"mode"`
	Reason string     `json:"reason,omitempty"`
	Since  *time.Time `json:"since,omitempty"`
}

type Breaker struct {
	mu        sync.RWMutex
	state     State
	reason    error
	trippedAt time.Time
	healthy   chan struct{}

	cooldown time.Duration
	checks   []Check
	recovers []func(ctx context.Context) error
	logger   *zap.Logger
	now      func() time.Time
}

func NewBreaker(cooldown time.Duration, logger *zap.Logger, checks ...Check) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	healthy := make(chan struct{})
	close(healthy)
	backendCompromised.Set(0)
	return &Breaker{
		state:    Healthy,
		healthy:  healthy,
		cooldown: cooldown,
		checks:   checks,
		logger:   logger,
		now:      time.Now,
	}
}

func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Breaker) Compromised() bool {
	return b.State() == Compromised
}

func (b *Breaker) Mode() string {
	if b.Compromised() {
		return ModeSimulated
	}
	return ModeLive
}

func (b *Breaker) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := Status{State: b.state.String(), Mode: ModeLive}
	if b.state == Compromised {
		since := b.trippedAt
		st.Mode = ModeSimulated
		st.Since = &since
		if b.reason != nil {
			st.Reason = b.reason.Error()
		}
	}
	return st
}

// Trip moves the breaker to Compromised. It reports whether this call did
// the transition; repeated trips during one outage are no-ops.
func (b *Breaker) Trip(reason error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Compromised {
		return false
	}
	b.state = Compromised
	b.reason = reason
	b.trippedAt = b.now()
	b.healthy = make(chan struct{})
	backendCompromised.Set(1)
	breakerTrips.Inc()
	b.logger.Warn("backend compromised, switching to simulated mode", zap.Error(reason))
	return true
}

// Observe trips the breaker when err marks the backend as unavailable and
// reports whether it did so.
func (b *Breaker) Observe(err error) bool {
	if err == nil || !errors.Is(err, domain.ErrBackendUnavailable) {
		return false
	}
	b.Trip(err)
	return true
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Healthy {
		return
	}
	b.state = Healthy
	b.reason = nil
	close(b.healthy)
	backendCompromised.Set(0)
	b.logger.Info("backend restored, switching to live mode")
}

// OnRecover registers fn to run once every check passes and before the
// breaker resets. A failing fn keeps the breaker compromised until the next
// probe.
func (b *Breaker) OnRecover(fn func(ctx context.Context) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recovers = append(b.recovers, fn)
}

// WaitHealthy blocks until the breaker is Healthy or ctx ends.
func (b *Breaker) WaitHealthy(ctx context.Context) error {
	b.mu.RLock()
	ch := b.healthy
	b.mu.RUnlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Probe pings every check once the cooldown since the trip has elapsed and
// resets the breaker when all of them succeed. It returns true when the
// breaker ends up Healthy.
func (b *Breaker) Probe(ctx context.Context) bool {
	return b.probe(ctx, false)
}

// ForceProbe is Probe without the cooldown.
func (b *Breaker) ForceProbe(ctx context.Context) bool {
	return b.probe(ctx, true)
}

func (b *Breaker) probe(ctx context.Context, force bool) bool {
	b.mu.RLock()
	state, trippedAt, recovers := b.state, b.trippedAt, b.recovers
	b.mu.RUnlock()

	if state == Healthy {
		return true
	}
	if !force && b.now().Sub(trippedAt) < b.cooldown {
		return false
	}

	for _, check := range b.checks {
		if err := check.Ping(ctx); err != nil {
			b.logger.Debug("health probe failed", zap.String("check", check.Name), zap.Error(err))
			return false
		}
	}
	for _, fn := range recovers {
		if err := fn(ctx); err != nil {
			b.logger.Warn("backend recovery step failed", zap.Error(err))
			return false
		}
	}
	b.Reset()
	return true
}
