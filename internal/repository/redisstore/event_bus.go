package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gdugdh24/rakshak-backend/internal/domain"
	"github.com/gdugdh24/rakshak-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const EmergencyChannel = "emergencies"

type eventBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewEmergencyEventBus(client *redis.Client, logger *zap.Logger) repository.EmergencyEventBus {
	return &eventBus{client: client, logger: logger}
}

func (b *eventBus) Publish(ctx context.Context, event domain.EmergencyEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return wrap(b.client.Publish(ctx, EmergencyChannel, payload).Err())
}

func (b *eventBus) Subscribe(ctx context.Context) (<-chan domain.EmergencyEvent, <-chan error, error) {
	ps := b.client.Subscribe(ctx, EmergencyChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, wrap(err)
	}

	events := make(chan domain.EmergencyEvent)
	errs := make(chan error, 1)

	// Closing the pubsub is what unblocks ReceiveMessage on cancellation.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ps.Close()
	}()

	go func() {
		defer close(errs)
		defer close(events)
		defer close(stop)

		for {
			msg, err := ps.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					errs <- wrap(err)
				}
				return
			}
			var event domain.EmergencyEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("dropping malformed emergency event", zap.Error(err))
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errs, nil
}
