package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParserChunks(t *testing.T) {
	t.Parallel()

	var p Parser
	assert.Empty(t, p.Feed([]byte("loading ")))
	assert.Equal(t, []Line{{Text: "loading config", Event: EventOther}}, p.Feed([]byte("config\r\n")))
	assert.Equal(t, []Line{{Event: EventReady}}, p.Feed([]byte("> ")))

	lines := p.Feed([]byte("Bot started successfully\n> That command doesn't exist\nBot stopped succ"))
	assert.Equal(t, []Line{
		{Text: "Bot started successfully", Event: EventStarted},
		{Text: "> That command doesn't exist", Event: EventRejected},
	}, lines)

	assert.Equal(t, []Line{
		{Text: "Bot stopped successfully", Event: EventStopped},
		{Event: EventReady},
	}, p.Feed([]byte("essfully\n> ")))
}

func TestParserPromptWithText(t *testing.T) {
	t.Parallel()

	var p Parser
	assert.Equal(t, []Line{
		{Text: "started successfully", Event: EventStarted},
		{Event: EventReady},
	}, p.Feed([]byte("started successfully> ")))
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	s := newStatus()
	assert.False(t, s.apply(EventReady, now()), "no process")

	s.spawned(now())
	assert.Equal(t, StateStarting, s.phase)
	assert.True(t, s.apply(EventStarted, now()))
	assert.Equal(t, StateClientUp, s.phase)
	assert.False(t, s.apply(EventStarted, now()))
	assert.True(t, s.apply(EventStopped, now()))
	assert.Equal(t, StateClientDown, s.phase)
	assert.False(t, s.apply(EventOther, now()))

	s.exited()
	snap := s.snapshot()
	assert.Equal(t, StateDisabled, snap.State)
	assert.False(t, snap.ProcessRunning)
	assert.False(t, snap.BotRunning)

	s.enabled = true
	assert.Equal(t, StateStopped, s.snapshot().State)
	assert.Equal(t, "client up", StateClientUp.String())
	assert.Equal(t, "ready", EventReady.String())
}

func now() time.Time {
	return newClock().Now()
}
