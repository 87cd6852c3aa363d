package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

func startFeed(t *testing.T, f *fixture) *Feed {
	t.Helper()
	feed := NewFeed(f.store.Events(), f.uc, f.breaker, zap.NewNop())
	feed.Start(context.Background())
	t.Cleanup(feed.Stop)
	require.Eventually(t, func() bool { return f.store.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	return feed
}

// waitFor reads from sub until match accepts a message.
func waitFor(t *testing.T, sub *Subscription, match func(Message) bool) Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-sub.Messages():
			require.True(t, ok, "subscription closed")
			if match(msg) {
				return msg
			}
		case <-timeout:
			t.Fatal("timed out waiting for feed message")
		}
	}
}

func TestFeedPushesOpenRequests(t *testing.T) {
	f := newFixture(t, "victim", "helper")
	feed := startFeed(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := feed.Subscribe(ctx, "helper", &newDelhi)
	waitFor(t, sub, func(m Message) bool { return m.Type == MessageSnapshot && len(m.Emergencies) == 0 })

	s, err := f.uc.Trigger(ctx, "victim", &newDelhi)
	require.NoError(t, err)
	msg := waitFor(t, sub, func(m Message) bool { return m.Type == MessageSnapshot && len(m.Emergencies) == 1 })
	assert.Equal(t, s.ID, msg.Emergencies[0].ID)
	require.NotNil(t, msg.Emergencies[0].DistanceKm)

	_, err = f.uc.Accept(ctx, s.ID, "helper")
	require.NoError(t, err)
	waitFor(t, sub, func(m Message) bool { return m.Type == MessageSnapshot && len(m.Emergencies) == 0 })
}

func TestFeedAlertsGuardians(t *testing.T) {
	f := newFixture(t, "victim", "guardian", "stranger")
	feed := startFeed(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.social.ToggleFollow(ctx, "guardian", "victim", false)
	require.NoError(t, err)

	guardian := feed.Subscribe(ctx, "guardian", nil)
	stranger := feed.Subscribe(ctx, "stranger", nil)

	s, err := f.uc.Trigger(ctx, "victim", nil)
	require.NoError(t, err)

	alert := waitFor(t, guardian, func(m Message) bool { return m.Type == MessageAlert })
	require.NotNil(t, alert.Event)
	assert.Equal(t, s.ID, alert.Event.EmergencyID)

	// The stranger only ever sees snapshots.
	waitFor(t, stranger, func(m Message) bool {
		require.NotEqual(t, MessageAlert, m.Type)
		return len(m.Emergencies) == 1
	})
}

func TestFeedSendsOffDutyHelperEmptySnapshots(t *testing.T) {
	f := newFixture(t, "victim", "helper")
	feed := startFeed(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.uc.Trigger(ctx, "victim", &newDelhi)
	require.NoError(t, err)

	off := false
	_, err = f.store.Users().Update(ctx, "helper", domain.UserPatch{IsAvailable: &off})
	require.NoError(t, err)

	sub := feed.Subscribe(ctx, "helper", &newDelhi)
	msg := waitFor(t, sub, func(m Message) bool { return m.Type == MessageSnapshot })
	assert.Empty(t, msg.Emergencies)
}

func TestFeedTripsBreakerAndResubscribes(t *testing.T) {
	f := newFixture(t)
	startFeed(t, f)

	f.store.BreakSubscriptions(errors.New("connection reset by peer"))

	require.Eventually(t, f.breaker.Compromised, time.Second, 5*time.Millisecond)
	status := f.breaker.Status()
	assert.Contains(t, status.Reason, "live subscription")
	assert.Zero(t, f.store.Subscribers())

	f.breaker.Reset()
	require.Eventually(t, func() bool { return f.store.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFeedPushesNothingWhileCompromised(t *testing.T) {
	f := newFixture(t, "helper")
	feed := startFeed(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.breaker.Trip(domain.ErrBackendUnavailable)
	sub := feed.Subscribe(ctx, "helper", nil)

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message %q", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	f := newFixture(t, "helper")
	feed := startFeed(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	sub := feed.Subscribe(ctx, "helper", nil)
	assert.Equal(t, 1, feed.Subscribers())

	cancel()
	require.Eventually(t, func() bool { return feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	for range sub.Messages() {
	}
}

func TestStopClosesSubscriptions(t *testing.T) {
	f := newFixture(t, "helper")
	feed := NewFeed(f.store.Events(), f.uc, f.breaker, zap.NewNop())
	feed.Start(context.Background())

	sub := feed.Subscribe(context.Background(), "helper", nil)
	feed.Stop()

	for range sub.Messages() {
	}
	assert.Zero(t, feed.Subscribers())

	late := feed.Subscribe(context.Background(), "helper", nil)
	_, ok := <-late.Messages()
	assert.False(t, ok)
}
