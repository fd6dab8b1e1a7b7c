package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamDelta(t *testing.T) {
	t.Parallel()

	delta, smaller := teamDelta(map[int]int{1: 6, 2: 2})
	assert.Equal(t, 4, delta)
	assert.Equal(t, 2, smaller)

	delta, smaller = teamDelta(map[int]int{1: 1, 2: 3})
	assert.Equal(t, 2, delta)
	assert.Equal(t, 1, smaller)

	delta, smaller = teamDelta(map[int]int{})
	assert.Zero(t, delta)
	assert.Zero(t, smaller)
}

// six bots on team 1, two on team 2
func unevenTeams(slot int) int {
	if slot < 6 {
		return 1
	}

	return 2
}

func TestEnsureTeamBalance(t *testing.T) {
	t.Parallel()

	sc := ServerConfig{Name: "alpha", Slots: 8, Autobalance: true}

	t.Run("reduces slots to twice the smaller team", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, sc, 8)
		h.query.set(func(q *liveQuery) {
			info := h.info(32, unevenTeams, 0, 1, 2, 3, 4, 5, 6, 7)
			q.override = &info
		})

		require.NoError(t, h.server.EnsureTeamBalance(context.Background()))
		st := h.server.Snapshot()
		assert.True(t, st.AutobalanceInProgress)
		assert.Equal(t, h.clock.Now(), st.AutobalanceStartedAt)
		assert.Equal(t, 4, st.TargetSlots())

		// bots of team 1 left, both teams have two bots
		h.clock.Add(time.Minute)
		h.query.set(func(q *liveQuery) {
			info := h.info(32, unevenTeams, 0, 1, 6, 7)
			q.override = &info
		})

		require.NoError(t, h.server.EnsureTeamBalance(context.Background()))
		st = h.server.Snapshot()
		assert.False(t, st.AutobalanceInProgress)
		assert.True(t, st.AutobalanceStartedAt.IsZero())
		assert.Equal(t, 4, st.TargetSlots())
	})

	t.Run("aborts after max duration", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, sc, 8)
		h.query.set(func(q *liveQuery) {
			info := h.info(32, unevenTeams, 0, 1, 2, 3, 4, 5, 6, 7)
			q.override = &info
		})

		require.NoError(t, h.server.EnsureTeamBalance(context.Background()))
		require.True(t, h.server.Snapshot().AutobalanceInProgress)

		h.clock.Add(2 * time.Minute)
		require.NoError(t, h.server.EnsureTeamBalance(context.Background()))
		assert.True(t, h.server.Snapshot().AutobalanceInProgress, "still waiting")

		h.clock.Add(3 * time.Minute)
		require.NoError(t, h.server.EnsureTeamBalance(context.Background()))
		st := h.server.Snapshot()
		assert.False(t, st.AutobalanceInProgress)
		assert.Equal(t, 4, st.TargetSlots(), "the reduced target is kept")
	})

	t.Run("players must be balanced too", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, sc, 8)
		h.server.balance(&State{}, 0, 0, 0, 0, h.clock.Now())

		st := State{Config: sc, CurrentSlots: intPtr(4), AutobalanceInProgress: true, AutobalanceStartedAt: h.clock.Now()}
		h.server.balance(&st, 4, 0, 2, 2, h.clock.Now())
		assert.True(t, st.AutobalanceInProgress)

		h.server.balance(&st, 4, 0, 2, 1, h.clock.Now())
		assert.False(t, st.AutobalanceInProgress)
	})

	t.Run("not started while slots are not filled", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, sc, 8)
		st := State{Config: sc}
		h.server.balance(&st, 6, 4, 1, 0, h.clock.Now())
		assert.False(t, st.AutobalanceInProgress)
		assert.Equal(t, 8, st.TargetSlots())
	})
}

func TestEnsureTeamBalanceDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, ServerConfig{Name: "alpha", Slots: 8}, 8)
	h.query.set(func(q *liveQuery) {
		info := h.info(32, unevenTeams, 0, 1, 2, 3, 4, 5, 6, 7)
		q.override = &info
	})

	require.NoError(t, h.server.EnsureTeamBalance(context.Background()))
	st := h.server.Snapshot()
	assert.False(t, st.AutobalanceInProgress)
	assert.Nil(t, st.CurrentSlots)
}
