package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/fleet"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFleet struct {
	servers []*fleet.Server
}

func (f *fakeFleet) Servers() []*fleet.Server {
	return f.servers
}

func (f *fakeFleet) Server(name string) (*fleet.Server, error) {
	for _, s := range f.servers {
		if s.Name() == name {
			return s, nil
		}
	}

	return nil, fmt.Errorf("%q: %w", name, fleet.ErrServerNotFound)
}

func (f *fakeFleet) LaunchComplete() bool {
	return true
}

func newFleet(t *testing.T) *fakeFleet {
	t.Helper()

	ctx := context.Background()
	var bots []*bot.Bot
	for i, basename := range []string{"ace", "bravo"} {
		c := bot.NewConfig(basename, "secret", i, bot.Server{Name: "alpha"}, filepath.Join(t.TempDir(), "running"))
		bots = append(bots, bot.New(ctx, c, nil, nil, nil, bot.Options{}))
	}
	bots[1].SetEnabled(true)

	s := fleet.NewServer(ctx, fleet.ServerConfig{Name: "alpha", Address: "10.0.0.1", Port: 16567, Slots: 2}, bots, nil, nil, config.Fleet{OverpopulateFactor: 1})
	t.Cleanup(s.Close)

	return &fakeFleet{servers: []*fleet.Server{s}}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := NewRouter(context.Background(), newFleet(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestServers(t *testing.T) {
	t.Parallel()

	f := newFleet(t)
	require.NoError(t, f.servers[0].SetCurrentSlots(0))

	r := NewRouter(context.Background(), f)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/servers", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view FleetView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.LaunchComplete)
	require.Len(t, view.Servers, 1)

	s := view.Servers[0]
	assert.Equal(t, "alpha", s.Name)
	assert.Equal(t, 0, s.TargetSlots)
	assert.Equal(t, 2, s.State.Config.Slots)
	require.Len(t, s.Bots, 2)
	assert.Equal(t, "bravo", s.Bots[1].Basename)
	assert.True(t, s.Bots[1].Status.Enabled)
	assert.Contains(t, w.Body.String(), `"state":"disabled"`)
	assert.Contains(t, w.Body.String(), `"state":"stopped"`)
}

func TestServer(t *testing.T) {
	t.Parallel()

	r := NewRouter(context.Background(), newFleet(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/servers/alpha", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var view ServerView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "alpha", view.Name)
	assert.Equal(t, 2, view.TargetSlots)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/servers/beta", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServeHTTP(t *testing.T) {
	t.Parallel()

	srv, err := New("0")
	require.NoError(t, err)
	require.NotEmpty(t, srv.Port())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- srv.ServeHTTP(ctx, &http.Server{Handler: NewRouter(ctx, newFleet(t)), ReadHeaderTimeout: time.Second})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + srv.Port() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
