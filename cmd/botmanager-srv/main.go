package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/buildinfo"
	"github.com/bloops-games/botmanager/internal/cache"
	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/database"
	identitydb "github.com/bloops-games/botmanager/internal/database/identity/database"
	pindb "github.com/bloops-games/botmanager/internal/database/slotpin/database"
	"github.com/bloops-games/botmanager/internal/fleet"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/query"
	"github.com/bloops-games/botmanager/internal/server"
	"github.com/bloops-games/botmanager/internal/shutdown"
	"github.com/bloops-games/botmanager/internal/tgbot"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Greeting())

	ctx, done := shutdown.New()
	defer done()

	logger := logging.FromContext(ctx)
	if err := realMain(ctx); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context) error {
	// a missing .env file is fine, the environment may be set otherwise
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var cfg config.Config
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("processing the config: %w", err)
	}

	logger := logging.NewLoggerWithFile(cfg.Debug, cfg.FileConfig)
	defer func() { _ = logger.Sync() }()
	ctx = logging.WithLogger(ctx, logger)

	servers, err := config.LoadServers(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("load servers: %w", err)
	}
	logger.Infof("loaded %d servers from %s", len(servers), cfg.ConfigFile)

	resourceDir := cfg.ResourceDir
	if cfg.MountedResources {
		// hard links cannot cross mounts
		logger.Infof("copying mounted resources from %s to %s", cfg.ResourceDir, cfg.LocalResourceDir)
		if err := bot.CopyResources(cfg.ResourceDir, cfg.LocalResourceDir, cfg.ResourceBinaries); err != nil {
			return fmt.Errorf("copy resources: %w", err)
		}
		resourceDir = cfg.LocalResourceDir
	}

	db, err := database.NewFromEnv(ctx, &cfg.Config)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}
	defer db.Close(ctx)

	identityCache, err := cache.NewLRU(cfg.Cache.Size)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	store, err := newStore(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("new store: %w", err)
	}
	defer store.Close()

	absResourceDir, err := filepath.Abs(resourceDir)
	if err != nil {
		return fmt.Errorf("resource dir: %w", err)
	}

	deps := fleet.Deps{
		Launcher: bot.NewExecLauncher(cfg.BotCommand, cfg.BotArgs...),
		Direct: query.NewCachedClient(
			query.NewGamespyBackend(cfg.Query.RequestTimeout, cfg.Query.GamespyAttempts),
			store, cfg.Cache.KeyPrefix, cfg.Query.StatusCacheTTL,
		),
		API: query.NewCachedClient(
			query.NewBflistBackend(cfg.Query.BflistURL, cfg.Query.RequestTimeout),
			store, cfg.Cache.KeyPrefix, cfg.Query.StatusCacheTTL,
		),
		Identities:  identitydb.New(db, identityCache),
		Pins:        pindb.New(db),
		RunningDir:  cfg.RunningDir,
		ResourceDir: absResourceDir,
		Binaries:    cfg.ResourceBinaries,
	}

	built, err := fleet.Build(ctx, cfg.Fleet, servers, deps)
	if err != nil {
		return fmt.Errorf("build fleet: %w", err)
	}
	manager := fleet.NewManager(ctx, cfg.Fleet, built)

	srv, err := server.New(cfg.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	var tg *tgbotapi.BotAPI
	if cfg.Telegram.Token != "" {
		if tg, err = tgbotapi.NewBotAPI(cfg.Telegram.Token); err != nil {
			return fmt.Errorf("bot api: %w", err)
		}
		tg.Debug = cfg.Debug
		logger.Infof("authorization in telegram was successful: %s", tg.Self.UserName)
	} else {
		logger.Warnf("no telegram token configured, command surface disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		return srv.ServeHTTP(gctx, &http.Server{
			Handler:           server.NewRouter(gctx, manager),
			ReadHeaderTimeout: readHeaderTimeout,
		})
	})

	if tg != nil {
		g.Go(func() error {
			return tgbot.NewManager(tg, manager, cfg.Telegram).Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Infof("shutdown complete")
	return nil
}

// newStore picks the shared redis store, the on-disk badger store or the
// in-memory store, in that order.
func newStore(ctx context.Context, cfg config.Cache) (cache.Store, error) {
	logger := logging.FromContext(ctx)

	switch {
	case cfg.RedisURL != "":
		logger.Infof("caching query results in redis")
		return cache.NewRedisStore(ctx, cfg.RedisURL)
	case cfg.BadgerPath != "":
		logger.Infof("caching query results in badger at %s", cfg.BadgerPath)
		return cache.NewBadgerStore(cfg.BadgerPath)
	default:
		logger.Infof("caching query results in memory")
		return cache.NewMemoryStore(cfg.Size)
	}
}
