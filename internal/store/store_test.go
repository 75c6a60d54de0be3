package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := InMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateSession("sess-1", "alice", "cli"))

	got, err := s.GetSession("sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.User)
	assert.Equal(t, "cli", got.Channel)

	count, err := s.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, s.UpsertSession("sess-1", "websocket", "alice", `{"nickname":"al"}`))
	got, err = s.GetSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "websocket", got.Channel)
	assert.Equal(t, `{"nickname":"al"}`, got.Metadata)

	require.NoError(t, s.DeleteSession("sess-1"))
	got, err = s.GetSession("sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetSessionMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSession("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAppendMessageBumpsSessionAndOrdersAscending(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateSession("sess-1", "", ""))

	before, err := s.GetSession("sess-1")
	require.NoError(t, err)

	_, err = s.AppendMessage("sess-1", "user", "hello")
	require.NoError(t, err)
	_, err = s.AppendMessage("sess-1", "assistant", "hi there")
	require.NoError(t, err)

	messages, err := s.GetMessages("sess-1", 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "hi there", messages[1].Content)

	after, err := s.GetSession("sess-1")
	require.NoError(t, err)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestMessageCascadesOnSessionDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateSession("sess-1", "", ""))
	_, err := s.AppendMessage("sess-1", "user", "hello")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession("sess-1"))

	messages, err := s.GetMessages("sess-1", 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestScheduledTaskLifecycle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateSession("sess-1", "", ""))

	fireAt := time.Now().UTC().Add(time.Hour)
	taskID, err := s.ScheduleTask("sess-1", "alice", fireAt, "check in")
	require.NoError(t, err)
	assert.NotZero(t, taskID)

	pending, err := s.CountPendingTasksForSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	due, err := s.DueTasks(time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, due, "task is not due yet")

	due, err = s.DueTasks(fireAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "check in", due[0].Reason)

	require.NoError(t, s.MarkTaskFired(taskID))
	pending, err = s.CountPendingTasksForSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
}

func TestTaskCascadesOnSessionDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateSession("sess-1", "", ""))
	_, err := s.ScheduleTask("sess-1", "alice", time.Now().UTC().Add(time.Minute), "reason")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession("sess-1"))

	pending, err := s.CountPendingTasksForSession("sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
}
