package broker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/concert-mate/bot/core/logger"
)

// Handler processes one decoded event. The dedup key is stable across
// redeliveries of the same message.
type Handler func(ctx context.Context, ev *Event, dedupKey string)

// Consumer is a queue-group subscription over a NATS connection. Running
// several reconciler processes under the same queue group splits the event
// stream between them.
type Consumer struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// Connect dials NATS with reconnect logging. The connection retries
// indefinitely; a bot that cannot hear the tracker should wait, not die.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.BROKER.Warn("nats connection lost",
				slog.String("event", "broker.disconnect"),
				slog.Any("cause", err),
			)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.BROKER.Info("nats connection restored",
				slog.String("event", "broker.reconnect"),
				slog.String("url", nc.ConnectedUrl()),
			)
		}),
	)
}

func NewConsumer(conn *nats.Conn) *Consumer {
	return &Consumer{conn: conn}
}

// Start subscribes to subject under the queue group and routes every
// well-formed message to h. Malformed payloads are logged and dropped;
// redelivering them cannot make them parse.
func (c *Consumer) Start(ctx context.Context, subject, queue string, h Handler) error {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ev, err := DecodeEvent(msg.Data)
		if err != nil {
			logger.BROKER.Warn("event dropped",
				slog.String("event", "broker.event.malformed"),
				slog.String("subject", msg.Subject),
				slog.Int("bytes", len(msg.Data)),
				slog.String("cause", err.Error()),
			)
			return
		}
		logger.BROKER.Debug("event received",
			slog.String("event", "broker.event.received"),
			slog.Int64("user_id", ev.User.TelegramID),
			slog.Int("concerts", len(ev.Concerts)),
		)
		h(ctx, ev, DedupKey(msg))
	})
	if err != nil {
		return err
	}
	c.sub = sub
	logger.BROKER.Info("consumer started",
		slog.String("event", "broker.start"),
		slog.String("subject", subject),
		slog.String("queue", queue),
	)
	return nil
}

// Close drains the subscription so in-flight handlers finish, then drops
// the connection.
func (c *Consumer) Close() {
	if c.sub != nil {
		_ = c.sub.Drain()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// DedupKey prefers the publisher-assigned message id and falls back to a
// digest of the payload, so a republished identical event still collapses.
func DedupKey(msg *nats.Msg) string {
	if id := msg.Header.Get(nats.MsgIdHdr); id != "" {
		return id
	}
	sum := sha256.Sum256(msg.Data)
	return hex.EncodeToString(sum[:])
}
