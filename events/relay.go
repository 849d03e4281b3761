package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Relay consumes the events channel and hands every envelope to the broker.
// It reconnects with a short backoff if the subscription drops, and returns
// when ctx is canceled. Run it in its own goroutine.
func Relay(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, broker *Broker) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.Errorf("unable to parse event envelope: %v", err)
					continue
				}
				broker.Broadcast(env)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("events channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
