package memory

import (
	"context"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
)

type subscriber struct {
	events chan domain.EmergencyEvent
	errs   chan error
	done   chan struct{}
}

type eventBus Store

func (b *eventBus) Publish(ctx context.Context, event domain.EmergencyEvent) error {
	s := (*Store)(b)
	if err := s.lock(); err != nil {
		return err
	}
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := append([]*subscriber{}, s.subs...)
	s.subsMu.Unlock()

	for _, sub := range subs {
		select {
		case sub.events <- event:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *eventBus) Subscribe(ctx context.Context) (<-chan domain.EmergencyEvent, <-chan error, error) {
	s := (*Store)(b)
	if err := s.lock(); err != nil {
		return nil, nil, err
	}
	s.mu.Unlock()

	sub := &subscriber{
		events: make(chan domain.EmergencyEvent, 16),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		s.dropSubscriber(sub, nil)
	}()
	return sub.events, sub.errs, nil
}

// BreakSubscriptions ends every live subscription with err, the way a lost
// Redis connection would.
func (s *Store) BreakSubscriptions(err error) {
	s.subsMu.Lock()
	subs := append([]*subscriber{}, s.subs...)
	s.subsMu.Unlock()
	for _, sub := range subs {
		s.dropSubscriber(sub, err)
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Store) dropSubscriber(sub *subscriber, err error) {
	s.subsMu.Lock()
	found := false
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			found = true
			break
		}
	}
	s.subsMu.Unlock()
	if !found {
		return
	}
	close(sub.done)
	if err != nil {
		sub.errs <- err
	}
	close(sub.errs)
}
