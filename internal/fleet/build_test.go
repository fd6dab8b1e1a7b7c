package fleet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/cache"
	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/database"
	identitydb "github.com/bloops-games/botmanager/internal/database/identity/database"
	"github.com/bloops-games/botmanager/internal/database/identity/model"
	pindb "github.com/bloops-games/botmanager/internal/database/slotpin/database"
	pinmodel "github.com/bloops-games/botmanager/internal/database/slotpin/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuildDeps(t *testing.T) Deps {
	t.Helper()

	ctx := context.Background()
	db, err := database.NewFromEnv(ctx, &database.Config{FilePath: filepath.Join(t.TempDir(), "botmanager.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })

	lru, err := cache.NewLRU(16)
	require.NoError(t, err)

	resourceDir := t.TempDir()
	binaries := []string{"bots.exe", "bots.dll"}
	for _, name := range binaries {
		require.NoError(t, os.WriteFile(filepath.Join(resourceDir, name), []byte(name), 0755))
	}

	return Deps{
		Launcher:    &autoLauncher{},
		Direct:      &liveQuery{maxPlayers: 16},
		API:         &liveQuery{maxPlayers: 64},
		Identities:  identitydb.New(db, lru),
		Pins:        pindb.New(db),
		RunningDir:  t.TempDir(),
		ResourceDir: resourceDir,
		Binaries:    binaries,
	}
}

func buildServers() []config.Server {
	return []config.Server{
		{
			Name:    "private",
			Address: "192.168.1.10",
			Port:    16567,
			Mod:     "mods/bf2",
			Slots:   4,
			Bots:    []config.Bot{{Basename: "alpha", Password: "a"}, {Basename: "beta", Password: "b"}},
		},
		{
			Name:      "public",
			Address:   "8.8.8.8",
			Port:      16567,
			QueryPort: 29900,
			Mod:       "mods/bf2",
			Slots:     2,
			Bots:      []config.Bot{{Basename: "gamma", Password: "c"}},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	deps := newBuildDeps(t)
	ctx := context.Background()

	servers, err := Build(ctx, testFleetConfig(), buildServers(), deps)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	t.Cleanup(func() {
		for _, s := range servers {
			s.Close()
		}
	})

	private := servers[0]
	assert.Equal(t, "private", private.Name())
	assert.Same(t, deps.Direct, private.query)
	assert.Same(t, deps.API, servers[1].query)
	assert.True(t, private.Snapshot().Config.Autobalance)

	require.Len(t, private.Bots(), 2)
	c := private.Bots()[1].Config()
	assert.Equal(t, 1, c.Slot)
	assert.Equal(t, filepath.Join(deps.RunningDir, "private", "1"), c.Dir)
	for _, name := range deps.Binaries {
		assert.FileExists(t, filepath.Join(c.Dir, name))
	}
	assert.FileExists(t, filepath.Join(c.Dir, bot.CredentialsFile))

	stored, err := deps.Identities.Fetch("private", 1)
	require.NoError(t, err)
	assert.Equal(t, c.Nickname, stored.Nickname)
	assert.Equal(t, c.CDKey, stored.CDKey)
}

func TestBuildRestoresIdentitiesAndPins(t *testing.T) {
	t.Parallel()

	deps := newBuildDeps(t)
	ctx := context.Background()

	require.NoError(t, deps.Identities.Store(model.Identity{Server: "private", Slot: 0, Nickname: "alpha^77", CDKey: "KEY"}))
	// basename changed since, a fresh identity is generated
	require.NoError(t, deps.Identities.Store(model.Identity{Server: "private", Slot: 1, Nickname: "old^12", CDKey: "OLD"}))
	require.NoError(t, deps.Pins.Store(pinmodel.Pin{Server: "private", Slots: 2, PinnedAt: time.Now()}))

	servers, err := Build(ctx, testFleetConfig(), buildServers(), deps)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, s := range servers {
			s.Close()
		}
	})

	bots := servers[0].Bots()
	assert.Equal(t, "alpha^77", bots[0].Nickname())
	assert.Equal(t, "KEY", bots[0].Config().CDKey)
	assert.NotEqual(t, "old^12", bots[1].Nickname())
	assert.Contains(t, bots[1].Nickname(), "beta^")

	stored, err := deps.Identities.Fetch("private", 1)
	require.NoError(t, err)
	assert.Equal(t, bots[1].Nickname(), stored.Nickname)

	st := servers[0].Snapshot()
	assert.Equal(t, 2, st.TargetSlots())
	require.NotNil(t, st.PinnedSlots)
	assert.Nil(t, servers[1].Snapshot().PinnedSlots)
}
