package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceTurnOrder(t *testing.T) {
	inst := &Instance{Users: []string{"alice", "bob"}}

	assert.Equal(t, "alice", inst.CurrentUser())
	assert.Equal(t, "bob", inst.NextUser())
	inst.Turn++
	assert.Equal(t, "bob", inst.CurrentUser())
	assert.Equal(t, []string{"alice"}, inst.Others("bob"))
	assert.Equal(t, 1, inst.Seat("bob"))
	assert.Equal(t, -1, inst.Seat("carol"))
}

func TestInstancePassOnce(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &Action{ID: "a", Priority: 1}
	second := &Action{ID: "b", Priority: 3}
	inst := &Instance{}
	inst.AddAction(first)
	inst.AddAction(second)

	maxPriority, ok := inst.MaxPriority()
	require.True(t, ok)
	assert.Equal(t, 3, maxPriority)

	assert.True(t, inst.Pass(first, now))
	assert.False(t, inst.Pass(first, now))
	assert.False(t, inst.IsPending(first))
	require.Len(t, inst.Actions.Previous, 1)
	assert.Equal(t, "a", inst.Actions.Previous[0].ID)
	assert.Equal(t, now, inst.Actions.Previous[0].PassedAt)

	_, ok = inst.PendingAction("b")
	assert.True(t, ok)
}

func TestInstanceFinish(t *testing.T) {
	inst := &Instance{Users: []string{"alice", "bob"}, Status: StatusActive}
	inst.Finish(StatusEnded, "bob")

	assert.False(t, inst.IsActive())
	assert.Equal(t, []UserResult{
		{User: "alice", Result: ResultWon},
		{User: "bob", Result: ResultLost},
	}, inst.Result)

	inst.Finish(StatusConceded, "alice")
	assert.Equal(t, ResultConceded, inst.Result[0].Result)
	assert.Len(t, inst.Result, 2)
}

func TestActionAnswer(t *testing.T) {
	action := &Action{
		Type:       "place-card",
		Subactions: []Subaction{{Kind: SubactionPutCard}},
	}

	_, err := action.Answer(0, SubactionPutCard)
	assert.ErrorIs(t, err, ErrRejected)

	action.Response = []Answer{{Kind: SubactionPutCard}}
	_, err = action.Answer(0, SubactionPutCard)
	assert.ErrorIs(t, err, ErrRejected)

	action.Response = []Answer{{Kind: SubactionPutCard, Put: &PutAnswer{CardID: 4, To: "1-1"}}}
	answer, err := action.Answer(0, SubactionPutCard)
	require.NoError(t, err)
	assert.Equal(t, 4, answer.Put.CardID)

	_, err = action.Answer(0, SubactionMoveCard)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestActionExpired(t *testing.T) {
	now := time.Now()
	action := &Action{}
	assert.False(t, action.Expired(now))

	past := now.Add(-time.Second)
	action.ExpiresAt = &past
	assert.True(t, action.Expired(now))
	assert.False(t, action.Expired(past))
}
