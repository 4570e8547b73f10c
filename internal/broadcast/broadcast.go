// Package broadcast notifies match participants of what happened in their
// instance. Delivery is best effort.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Topics sent by the match server.
const (
	TopicActionExecuted = "action.executed"
	TopicGameFinished   = "game.finished"
)

// Envelope is the wire form of a notification.
type Envelope struct {
	Topic   string          `json:"topic"`
	User    string          `json:"user"`
	SentAt  time.Time       `json:"sentAt"`
	Payload json.RawMessage `json:"payload"`
}

// Broadcaster sends a payload to every user of audience.
type Broadcaster interface {
	SendMessage(ctx context.Context, audience []string, topic string, payload any) error
	Close() error
}

// encode marshals one envelope per recipient.
func encode(user, topic string, payload any, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}
	return json.Marshal(Envelope{Topic: topic, User: user, SentAt: now, Payload: raw})
}

// Log writes notifications to the logger instead of sending them.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a logging broadcaster.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SendMessage(_ context.Context, audience []string, topic string, payload any) error {
	if l.logger != nil {
		l.logger.Debug("broadcast",
			zap.Strings("audience", audience),
			zap.String("topic", topic),
			zap.Any("payload", payload),
		)
	}
	return nil
}

func (l *Log) Close() error {
	return nil
}
