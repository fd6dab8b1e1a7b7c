package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/config"
	identitydb "github.com/bloops-games/botmanager/internal/database/identity/database"
	"github.com/bloops-games/botmanager/internal/database/identity/model"
	pinmodel "github.com/bloops-games/botmanager/internal/database/slotpin/model"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/query"
)

type IdentityStore interface {
	Fetch(server string, slot int) (model.Identity, error)
	Store(m model.Identity) error
}

type PinRepository interface {
	PinStore
	FetchAll() (map[string]pinmodel.Pin, error)
}

// Deps are the collaborators shared by all servers.
type Deps struct {
	Launcher bot.Launcher

	// Direct queries the game server itself, API a public status API.
	Direct query.Client
	API    query.Client

	Identities IdentityStore
	Pins       PinRepository

	RunningDir  string
	ResourceDir string
	Binaries    []string
}

// Build prepares the working directories and bots of every configured server.
// A slot whose directory cannot be prepared is logged and kept, its launches
// fail until fixed.
func Build(ctx context.Context, cfg config.Fleet, servers []config.Server, deps Deps) ([]*Server, error) {
	logger := logging.FromContext(ctx).Named("fleet.Build")

	pins := map[string]pinmodel.Pin{}
	if deps.Pins != nil {
		var err error
		if pins, err = deps.Pins.FetchAll(); err != nil {
			return nil, fmt.Errorf("fetch pins: %w", err)
		}
	}

	opts := bot.Options{
		StatusJitterMin: cfg.StatusJitterMin,
		StatusJitterMax: cfg.StatusJitterMax,
		PollInterval:    cfg.PollInterval,
	}

	result := make([]*Server, 0, len(servers))
	for _, sc := range servers {
		client := deps.API
		if query.ShouldQueryDirectly(sc.Address, sc.QueryDirectly) {
			client = deps.Direct
		}

		server := bot.Server{
			Name:      sc.Name,
			Address:   sc.Address,
			Port:      sc.Port,
			QueryPort: sc.QueryPort,
			Mod:       sc.Mod,
		}

		logger.Infof("preparing bots for %s", sc.Name)
		bots := make([]*bot.Bot, 0, len(sc.Bots))
		for slot, bc := range sc.Bots {
			c := bot.NewConfig(bc.Basename, bc.Password, slot, server, deps.RunningDir)
			if err := restoreIdentity(deps.Identities, &c); err != nil {
				logger.Errorf("failed to restore identity of %s slot %d: %v", sc.Name, slot, err)
			}

			logger.Debugf("setting up running folder for slot %d %s", slot, c.Nickname)
			if err := c.Setup(deps.ResourceDir, deps.Binaries); err != nil {
				logger.Errorf("failed to set up running folder for slot %d %s: %v", slot, c.Nickname, err)
			}

			var ids bot.IdentityStore
			if deps.Identities != nil {
				ids = deps.Identities
			}
			bots = append(bots, bot.New(ctx, c, deps.Launcher, client, ids, opts))
		}

		s := NewServer(ctx, ServerConfig{
			Name:          sc.Name,
			Address:       sc.Address,
			Port:          sc.Port,
			QueryPort:     sc.QueryPort,
			Mod:           sc.Mod,
			Slots:         sc.Slots,
			ReservedSlots: sc.ReservedSlots,
			Autobalance:   sc.AutobalanceEnabled(),
			QueryDirectly: sc.QueryDirectly,
		}, bots, client, deps.Pins, cfg)

		if pin, ok := pins[sc.Name]; ok {
			logger.Infof("restoring pinned slot target %d for %s", pin.Slots, sc.Name)
			if err := s.restorePin(pin.Slots); err != nil {
				return nil, fmt.Errorf("restore pin: %w", err)
			}
		}

		result = append(result, s)
	}

	return result, nil
}

// restoreIdentity reuses a persisted nickname and access key, or persists the
// freshly generated ones.
func restoreIdentity(store IdentityStore, c *bot.Config) error {
	if store == nil {
		return nil
	}

	stored, err := store.Fetch(c.Server.Name, c.Slot)
	if err == nil && !strings.HasPrefix(stored.Nickname, c.Basename+"^") {
		// basename changed in the config
		err = identitydb.ErrNotFound
	}

	switch {
	case err == nil:
		c.Nickname = stored.Nickname
		c.CDKey = stored.CDKey
		return nil
	case errors.Is(err, identitydb.ErrNotFound):
		return store.Store(model.Identity{
			Server:   c.Server.Name,
			Slot:     c.Slot,
			Nickname: c.Nickname,
			CDKey:    c.CDKey,
		})
	default:
		return err
	}
}
