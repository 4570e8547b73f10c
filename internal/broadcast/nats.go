package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix starts every subject published by NATS.
const SubjectPrefix = "matches"

// publisher is the part of *nats.Conn the broadcaster needs.
type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATS publishes each notification on matches.<user>.<topic>.
type NATS struct {
	conn   publisher
	logger *zap.Logger
	now    func() time.Time
}

// ConnectNATS dials the server and returns a broadcaster on it.
func ConnectNATS(url, name string, logger *zap.Logger) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if logger != nil && err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return newNATS(nc, logger), nil
}

func newNATS(conn publisher, logger *zap.Logger) *NATS {
	return &NATS{conn: conn, logger: logger, now: time.Now}
}

// Subject returns the subject a notification for user is published on.
func Subject(user, topic string) string {
	return SubjectPrefix + "." + user + "." + topic
}

func (n *NATS) SendMessage(_ context.Context, audience []string, topic string, payload any) error {
	var errs []error
	for _, user := range audience {
		data, err := encode(user, topic, payload, n.now())
		if err != nil {
			return err
		}
		if err := n.conn.Publish(Subject(user, topic), data); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", user, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		if n.logger != nil {
			n.logger.Warn("nats broadcast failed", zap.String("topic", topic), zap.Error(err))
		}
		return err
	}
	return nil
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}
