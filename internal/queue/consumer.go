package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	consumerPrefetch = 20
	minBackoff       = time.Second
	maxBackoff       = 30 * time.Second
)

// Handler processes one decoded event.  A returned error rejects the
// message without requeue.
type Handler func(ctx context.Context, ev StatusChangedEvent) error

// StartNotificationConsumer consumes StatusChangedQueue until ctx is done.
// Broker failures are retried with exponential backoff; the function only
// returns when ctx is cancelled.
func StartNotificationConsumer(ctx context.Context, url string, handle Handler, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "notification-consumer")

	backoff := minBackoff
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial broker failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		err = consumeLoop(ctx, conn, handle, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle Handler, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		log.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(StatusChangedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(StatusChangedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := Dispatch(ctx, d.Body, handle); err != nil {
				log.Error("handle message failed", "error", err)
				_ = d.Nack(false, false) // do not requeue, avoids tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Dispatch decodes body and passes it to handle.
func Dispatch(ctx context.Context, body []byte, handle Handler) error {
	var ev StatusChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return handle(ctx, ev)
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
