package collector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/metrics"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// StreamName, Subject, and ConsumerName are spec.md §6.3/§4.6's fixed
// bus wire-format identifiers.
const (
	StreamName   = "honeypot"
	Subject      = "honeypot.logs"
	ConsumerName = "log-collector"

	maxAge          = 7 * 24 * time.Hour
	maxAckPending   = 500
	fetchWait       = 5 * time.Second
)

// Bus wraps a JetStream connection bound to the fixed stream/consumer
// pair of spec.md §4.6 step 3.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	sub  *nats.Subscription
}

// Connect dials the bus and idempotently ensures the stream and
// durable consumer exist (spec.md §4.6 step 3).
func Connect(url string) (*Bus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, hiveerr.HostResourceFailure("failed to connect to message bus", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, hiveerr.HostResourceFailure("failed to acquire JetStream context", err)
	}

	b := &Bus{conn: conn, js: js}
	if err := b.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := b.ensureConsumer(); err != nil {
		conn.Close()
		return nil, err
	}

	sub, err := js.PullSubscribe(Subject, ConsumerName, nats.BindStream(StreamName))
	if err != nil {
		conn.Close()
		return nil, hiveerr.HostResourceFailure("failed to bind pull subscription", err)
	}
	b.sub = sub
	return b, nil
}

func (b *Bus) ensureStream() error {
	if _, err := b.js.StreamInfo(StreamName); err == nil {
		return nil
	}
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{Subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    maxAge,
	})
	if err != nil {
		return hiveerr.HostResourceFailure("failed to create JetStream stream", err)
	}
	return nil
}

func (b *Bus) ensureConsumer() error {
	if _, err := b.js.ConsumerInfo(StreamName, ConsumerName); err == nil {
		return nil
	}
	_, err := b.js.AddConsumer(StreamName, &nats.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		MaxAckPending: maxAckPending,
		ReplayPolicy:  nats.ReplayInstantPolicy,
		DeliverPolicy: nats.DeliverAllPolicy,
	})
	if err != nil {
		return hiveerr.HostResourceFailure("failed to create durable consumer", err)
	}
	return nil
}

// Close tears down the bus connection.
func (b *Bus) Close() {
	b.conn.Close()
}

// Handler processes one decoded event, returning an error if indexing
// should not be acked (spec.md §4.6 step 5).
type Handler func(ctx context.Context, event types.HoneypotEvent) error

// Run is the single-threaded cooperative enrich-then-ack loop of
// spec.md §9: awaits the next message, hands it to handler, acks only
// on success. Decode failures are logged and left unacked (they will
// be redelivered; no poison-letter handling in the core). Runs until
// ctx is canceled.
func (b *Bus) Run(ctx context.Context, handler Handler) error {
	logger := log.WithComponent("collector.bus")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := b.sub.Fetch(1, nats.MaxWait(fetchWait), nats.Context(ctx))
		if err != nil {
			if err == nats.ErrTimeout || err == context.DeadlineExceeded {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("fetch from bus failed")
			continue
		}

		for _, msg := range msgs {
			b.process(ctx, msg, handler)
		}
	}
}

// process implements spec.md §4.6's per-message steps 1 and 5's ack
// discipline: decode failures and handler failures are logged and the
// message is left unacked; success acks explicitly.
func (b *Bus) process(ctx context.Context, msg *nats.Msg, handler Handler) {
	logger := log.WithComponent("collector.bus")

	var event types.HoneypotEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error().Err(err).Msg("failed to decode bus message; leaving unacked for redelivery")
		metrics.CollectorMessagesTotal.WithLabelValues("decode_error").Inc()
		return
	}

	if err := handler(ctx, event); err != nil {
		logger.Error().Err(err).Str("attacker_ip", event.AttackerIP).
			Msg("failed to index event; leaving unacked for redelivery")
		metrics.CollectorMessagesTotal.WithLabelValues("index_error").Inc()
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Error().Err(err).Msg("failed to ack indexed message")
		return
	}
	metrics.CollectorMessagesTotal.WithLabelValues("indexed").Inc()
}
