package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type published struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	messages []published
	failFor  string
	drained  bool
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.failFor != "" && strings.Contains(subject, f.failFor) {
		return errors.New("connection closed")
	}
	f.messages = append(f.messages, published{subject: subject, data: data})
	return nil
}

func (f *fakePublisher) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublishesPerUser(t *testing.T) {
	pub := &fakePublisher{}
	n := newNATS(pub, zaptest.NewLogger(t))
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := n.SendMessage(context.Background(), []string{"alice", "bob"}, TopicActionExecuted, map[string]string{"type": "place-card"})
	require.NoError(t, err)
	require.Len(t, pub.messages, 2)
	assert.Equal(t, "matches.alice.action.executed", pub.messages[0].subject)
	assert.Equal(t, "matches.bob.action.executed", pub.messages[1].subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(pub.messages[1].data, &env))
	assert.Equal(t, "bob", env.User)
	assert.Equal(t, TopicActionExecuted, env.Topic)
	assert.JSONEq(t, `{"type":"place-card"}`, string(env.Payload))

	require.NoError(t, n.Close())
	assert.True(t, pub.drained)
}

func TestNATSJoinsPublishErrors(t *testing.T) {
	pub := &fakePublisher{failFor: "bob"}
	n := newNATS(pub, zap.NewNop())

	err := n.SendMessage(context.Background(), []string{"alice", "bob"}, TopicGameFinished, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to bob")
	assert.Len(t, pub.messages, 1)
}

func TestHubDeliversToConnectedUser(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=alice"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected("alice") == 1 }, time.Second, 10*time.Millisecond)

	err = hub.SendMessage(context.Background(), []string{"alice", "bob"}, TopicActionExecuted, map[string]int{"turn": 3})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "alice", env.User)
	assert.JSONEq(t, `{"turn":3}`, string(env.Payload))
}

func TestHubRequiresUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestLogBroadcaster(t *testing.T) {
	l := NewLog(zaptest.NewLogger(t))
	assert.NoError(t, l.SendMessage(context.Background(), []string{"alice"}, TopicGameFinished, "ended"))
	assert.NoError(t, l.Close())
}
