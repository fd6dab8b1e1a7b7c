// Package fleet keeps bots populating game servers at a target occupancy.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrServerNotFound = errors.New("server not found")

const shutdownTimeout = 2 * time.Minute

type Manager struct {
	cfg     config.Fleet
	servers []*Server
	byName  map[string]*Server

	cron           *cron.Cron
	launchComplete atomic.Bool

	logger *zap.SugaredLogger
}

func NewManager(ctx context.Context, cfg config.Fleet, servers []*Server) *Manager {
	logger := logging.FromContext(ctx).Named("fleet.Manager")

	byName := make(map[string]*Server, len(servers))
	for _, s := range servers {
		byName[s.Name()] = s
	}

	return &Manager{
		cfg:     cfg,
		servers: servers,
		byName:  byName,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger{logger: logger.Named("cron")}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger.Named("cron")})),
		),
		logger: logger,
	}
}

func (m *Manager) Servers() []*Server {
	return m.servers
}

func (m *Manager) Server(name string) (*Server, error) {
	s, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrServerNotFound)
	}

	return s, nil
}

func (m *Manager) Bots() []*bot.Bot {
	var bots []*bot.Bot
	for _, s := range m.servers {
		bots = append(bots, s.Bots()...)
	}

	return bots
}

// LaunchComplete reports whether the initial launch finished and the
// schedules are running.
func (m *Manager) LaunchComplete() bool {
	return m.launchComplete.Load()
}

// LaunchBots runs the startup slot check and a first maintenance pass on
// every server, then starts the schedules.
func (m *Manager) LaunchBots(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m.servers {
		s := s
		g.Go(func() error {
			m.logger.Infof("launching bots for %s", s.Name())
			s.LaunchBots(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("launch bots: %w", err)
	}

	if err := m.schedule(ctx); err != nil {
		return err
	}

	m.cron.Start()
	m.launchComplete.Store(true)
	m.logger.Infof("bot launch complete")

	return nil
}

func (m *Manager) schedule(ctx context.Context) error {
	for _, s := range m.servers {
		s := s
		if _, err := m.cron.AddFunc(m.cfg.BotMaintenanceSchedule, func() {
			s.MaintainBots(ctx)
		}); err != nil {
			return fmt.Errorf("schedule bot maintenance %q: %w", m.cfg.BotMaintenanceSchedule, err)
		}

		if _, err := m.cron.AddFunc(m.cfg.SlotMaintenanceSchedule, func() {
			s.MaintainSlots(ctx)
		}); err != nil {
			return fmt.Errorf("schedule slot maintenance %q: %w", m.cfg.SlotMaintenanceSchedule, err)
		}
	}

	return nil
}

// Run refreshes bot statuses, launches the bots and blocks until ctx is done,
// then shuts the fleet down.
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range m.Bots() {
		b := b
		g.Go(func() error {
			b.RunStatusLoop(gctx, m.cfg.StatusInterval)
			return nil
		})
	}

	g.Go(func() error {
		return m.LaunchBots(gctx)
	})

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	m.Shutdown(shutdownCtx)

	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

// Shutdown stops the schedules and stops every bot of every server.
func (m *Manager) Shutdown(ctx context.Context) {
	m.logger.Infof("shutting down")

	select {
	case <-m.cron.Stop().Done():
	case <-ctx.Done():
		m.logger.Warnf("maintenance still running at shutdown")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range m.servers {
		s := s
		g.Go(func() error {
			s.Shutdown(gctx)
			return nil
		})
	}
	_ = g.Wait()

	m.logger.Infof("shutdown complete")
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
