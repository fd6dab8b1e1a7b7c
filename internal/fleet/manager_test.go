package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLookup(t *testing.T) {
	t.Parallel()

	a := newHarness(t, ServerConfig{Name: "alpha", Slots: 2}, 2)
	b := newHarness(t, ServerConfig{Name: "beta", Slots: 2}, 1)
	m := NewManager(context.Background(), testFleetConfig(), []*Server{a.server, b.server})

	s, err := m.Server("beta")
	require.NoError(t, err)
	assert.Same(t, b.server, s)

	_, err = m.Server("gamma")
	require.ErrorIs(t, err, ErrServerNotFound)

	assert.Len(t, m.Servers(), 2)
	assert.Len(t, m.Bots(), 3)
	assert.False(t, m.LaunchComplete())
}

func TestManagerLaunchBots(t *testing.T) {
	t.Parallel()

	h := newHarness(t, ServerConfig{Name: "alpha", Slots: 2}, 2)
	m := NewManager(context.Background(), testFleetConfig(), []*Server{h.server})

	require.NoError(t, m.LaunchBots(context.Background()))
	assert.True(t, m.LaunchComplete())
	enabled, _ := h.counts()
	assert.Equal(t, 2, enabled)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Shutdown(ctx)

	for _, b := range h.server.Bots() {
		assert.False(t, b.IsLaunched())
	}
	assert.True(t, h.server.Snapshot().ShutdownInProgress)
}

func TestManagerInvalidSchedule(t *testing.T) {
	t.Parallel()

	h := newHarness(t, ServerConfig{Name: "alpha", Slots: 2}, 1)
	cfg := testFleetConfig()
	cfg.SlotMaintenanceSchedule = "every now and then"
	m := NewManager(context.Background(), cfg, []*Server{h.server})

	require.Error(t, m.LaunchBots(context.Background()))
	assert.False(t, m.LaunchComplete())
}

func TestManagerRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, ServerConfig{Name: "alpha", Slots: 2}, 2)
	m := NewManager(context.Background(), testFleetConfig(), []*Server{h.server})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- m.Run(ctx)
	}()

	require.Eventually(t, m.LaunchComplete, 5*time.Second, time.Millisecond)
	for _, b := range h.server.Bots() {
		assert.True(t, b.IsLaunched())
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	for _, b := range h.server.Bots() {
		assert.False(t, b.IsLaunched())
	}
	assert.True(t, h.server.Snapshot().ShutdownInProgress)
}

func TestManagerRunFailsOnInvalidSchedule(t *testing.T) {
	t.Parallel()

	h := newHarness(t, ServerConfig{Name: "alpha", Slots: 2}, 1)
	cfg := testFleetConfig()
	cfg.BotMaintenanceSchedule = "@never"
	m := NewManager(context.Background(), cfg, []*Server{h.server})

	require.Error(t, m.Run(context.Background()))
	assert.True(t, h.server.Snapshot().ShutdownInProgress)
}
