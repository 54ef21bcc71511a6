// Package mq fans analytics events out over a Redis channel so ingestion
// stays cheap and storage happens in a worker.
package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"vogue/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const AnalyticsChannel = "analytics-events"

// Emitter publishes analytics events.
type Emitter struct {
	Conn    *redis.Client
	Channel string
	Log     *zap.Logger
}

func NewEmitter(conn *redis.Client, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{Conn: conn, Channel: AnalyticsChannel, Log: log}
}

// Emit publishes ev on the analytics channel.
func (e *Emitter) Emit(ctx context.Context, ev models.AnalyticsEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Event, err)
	}
	if err := e.Conn.Publish(ctx, e.Channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", e.Channel, err)
	}
	e.Log.Debug("event published", zap.String("event", ev.Event), zap.String("channel", e.Channel))
	return nil
}

// Handler stores or otherwise consumes one event.
type Handler func(ctx context.Context, ev models.AnalyticsEvent) error

// StartAnalyticsWorker consumes the channel until ctx is done. ready, if not
// nil, is closed once the subscription is confirmed.
func StartAnalyticsWorker(ctx context.Context, conn *redis.Client, handle Handler, log *zap.Logger, ready chan<- struct{}) error {
	if log == nil {
		log = zap.NewNop()
	}
	sub := conn.Subscribe(ctx, AnalyticsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", AnalyticsChannel, err)
	}
	if ready != nil {
		close(ready)
	}
	log.Info("listening for analytics events", zap.String("channel", AnalyticsChannel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.AnalyticsEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn("unparseable analytics event", zap.Error(err))
				continue
			}
			if err := handle(ctx, ev); err != nil {
				log.Error("analytics event not stored", zap.String("event", ev.Event), zap.Error(err))
			}
		}
	}
}
