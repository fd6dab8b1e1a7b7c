package bot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusApply(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newStatus()
	assert.Equal(t, StateDisabled, s.snapshot().State)

	// output without a process is ignored
	assert.False(t, s.apply(EventReady, now))

	s.enabled = true
	s.spawned(now)
	assert.Equal(t, StateStarting, s.snapshot().State)
	assert.True(t, s.apply(EventReady, now))
	assert.Equal(t, StateClientDown, s.snapshot().State)
	assert.False(t, s.apply(EventStopped, now))

	assert.True(t, s.apply(EventStarted, now))
	assert.False(t, s.apply(EventStarted, now))
	st := s.snapshot()
	assert.Equal(t, StateClientUp, st.State)
	assert.True(t, st.BotRunning)
	assert.Equal(t, now, st.BotStartedAt)

	assert.True(t, s.apply(EventStopped, now))
	assert.True(t, s.snapshot().BotStartedAt.IsZero())

	s.exited()
	st = s.snapshot()
	assert.Equal(t, StateStopped, st.State)
	assert.False(t, st.ProcessRunning)
	assert.False(t, st.CLIReady)
}

func TestStateText(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Status{State: StateClientUp})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"client up"`)

	var st Status
	require.NoError(t, json.Unmarshal(raw, &st))
	assert.Equal(t, StateClientUp, st.State)

	require.Error(t, json.Unmarshal([]byte(`{"state":"flying"}`), &st))
}
