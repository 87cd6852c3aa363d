package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/health"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"go.uber.org/zap"
)

const (
	MessageSnapshot = "snapshot"
	MessageAlert    = "guardian_alert"
)

const subscriptionBuffer = 8

var errSubscriptionClosed = errors.New("emergency subscription closed")

// Lister computes the open requests shown to one helper.
type Lister interface {
	ListOpen(ctx context.Context, helperID string, from *domain.GeoPoint) ([]*domain.EmergencySession, error)
}

// Message is one push to a live feed client.
type Message struct {
	Type        string                     `json:"type"`
	Emergencies []*domain.EmergencySession `json:"emergencies,omitempty"`
	Event       *domain.EmergencyEvent     `json:"event,omitempty"`
}

// Subscription is the live feed of one connected helper.
type Subscription struct {
	HelperID string
	From     *domain.GeoPoint

	ch     chan Message
	closed bool
}

// Messages is closed when the subscription ends.
func (s *Subscription) Messages() <-chan Message { return s.ch }

// Feed keeps every connected helper's list of open requests current. It
// listens on the event bus and re-sends each subscriber a fresh snapshot
// whenever any session changes.
type Feed struct {
	events  repository.EmergencyEventBus
	lister  Lister
	breaker *health.Breaker
	logger  *zap.Logger

	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewFeed(events repository.EmergencyEventBus, lister Lister, breaker *health.Breaker, logger *zap.Logger) *Feed {
	return &Feed{
		events:  events,
		lister:  lister,
		breaker: breaker,
		logger:  logger,
		subs:    map[*Subscription]struct{}{},
		stopped: make(chan struct{}),
	}
}

// Start runs the event pump until ctx ends or Stop is called.
func (f *Feed) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(ctx)
	}()
}

// Stop ends the pump and closes every subscription.
func (f *Feed) Stop() {
	f.mu.Lock()
	select {
	case <-f.stopped:
		f.mu.Unlock()
		return
	default:
	}
	close(f.stopped)
	cancel := f.cancel
	for sub := range f.subs {
		f.removeLocked(sub)
	}
	f.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	f.wg.Wait()
}

func (f *Feed) run(ctx context.Context) {
	for {
		if err := f.breaker.WaitHealthy(ctx); err != nil {
			return
		}
		err := f.pump(ctx)
		if ctx.Err() != nil {
			return
		}
		f.breaker.Trip(fmt.Errorf("%w: live subscription: %v", domain.ErrBackendUnavailable, err))
		f.logger.Warn("live feed stopped, waiting for backend", zap.Error(err))
	}
}

// pump forwards bus events until the subscription fails.
func (f *Feed) pump(ctx context.Context) error {
	events, errs, err := f.events.Subscribe(ctx)
	if err != nil {
		return err
	}
	f.logger.Info("live feed subscribed")
	f.refreshAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			f.handle(ctx, event)
		case err, ok := <-errs:
			if !ok {
				return errSubscriptionClosed
			}
			return err
		}
	}
}

func (f *Feed) handle(ctx context.Context, event domain.EmergencyEvent) {
	if f.breaker.Compromised() {
		return
	}
	if event.Status == domain.StatusRequested && len(event.Guardians) > 0 {
		guardians := make(map[string]bool, len(event.Guardians))
		for _, id := range event.Guardians {
			guardians[id] = true
		}
		alert := Message{Type: MessageAlert, Event: &event}
		for _, sub := range f.snapshotSubs() {
			if guardians[sub.HelperID] {
				f.deliver(sub, alert)
			}
		}
	}
	f.refreshAll(ctx)
}

func (f *Feed) refreshAll(ctx context.Context) {
	for _, sub := range f.snapshotSubs() {
		f.refresh(ctx, sub)
	}
}

func (f *Feed) refresh(ctx context.Context, sub *Subscription) {
	if f.breaker.Compromised() {
		return
	}
	open, err := f.lister.ListOpen(ctx, sub.HelperID, sub.From)
	if err != nil {
		f.logger.Warn("failed to build feed snapshot", zap.String("helper_id", sub.HelperID), zap.Error(err))
		return
	}
	f.deliver(sub, Message{Type: MessageSnapshot, Emergencies: open})
}

// Subscribe registers helperID and sends the current snapshot. The
// subscription ends when ctx does.
func (f *Feed) Subscribe(ctx context.Context, helperID string, from *domain.GeoPoint) *Subscription {
	sub := &Subscription{HelperID: helperID, From: from, ch: make(chan Message, subscriptionBuffer)}

	f.mu.Lock()
	select {
	case <-f.stopped:
		sub.closed = true
		close(sub.ch)
		f.mu.Unlock()
		return sub
	default:
	}
	f.subs[sub] = struct{}{}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		select {
		case <-ctx.Done():
		case <-f.stopped:
		}
		f.mu.Lock()
		f.removeLocked(sub)
		f.mu.Unlock()
	}()

	f.refresh(ctx, sub)
	return sub
}

// Subscribers returns the number of connected helpers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) snapshotSubs() []*Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		out = append(out, sub)
	}
	return out
}

// deliver never blocks. A slow client loses its oldest pending message.
func (f *Feed) deliver(sub *Subscription, msg Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case sub.ch <- msg:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- msg:
	default:
		f.logger.Debug("dropping feed message", zap.String("helper_id", sub.HelperID))
	}
}

func (f *Feed) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(f.subs, sub)
	close(sub.ch)
}
