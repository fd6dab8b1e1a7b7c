package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/database/slotpin/model"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/query"
	"go.uber.org/zap"
)

var (
	ErrServerClosed   = errors.New("server closed")
	ErrInvalidSlots   = errors.New("invalid slot count")
	ErrSlotsUnchanged = errors.New("slot count unchanged")
	ErrNotEnoughBots  = errors.New("not enough bots")
	ErrBotNotFound    = errors.New("bot not found")
	ErrBotNotRunning  = errors.New("bot not in game")
	ErrRestartFailed  = errors.New("restart failed")
)

// PinStore persists operator slot overrides.
type PinStore interface {
	Store(p model.Pin) error
	Delete(server string) error
}

type request struct {
	fn   func(*State)
	done chan struct{}
}

// Server owns the bots of one game server. Allocation state is only touched
// by the actor goroutine, requests are applied in arrival order.
type Server struct {
	name  string
	bots  []*bot.Bot
	query query.Client
	pins  PinStore
	cfg   config.Fleet
	now   func() time.Time

	requests  chan request
	closed    chan struct{}
	closeOnce sync.Once

	botMaintenanceRunning  atomic.Bool
	slotMaintenanceRunning atomic.Bool

	logger *zap.SugaredLogger
}

func NewServer(ctx context.Context, sc ServerConfig, bots []*bot.Bot, client query.Client, pins PinStore, cfg config.Fleet) *Server {
	s := &Server{
		name:     sc.Name,
		bots:     bots,
		query:    client,
		pins:     pins,
		cfg:      cfg,
		now:      time.Now,
		requests: make(chan request),
		closed:   make(chan struct{}),
		logger:   logging.FromContext(ctx).Named("fleet.Server").With("server", sc.Name),
	}

	go s.run(State{Config: sc})
	return s
}

func (s *Server) run(state State) {
	for {
		select {
		case req := <-s.requests:
			req.fn(&state)
			close(req.done)
		case <-s.closed:
			return
		}
	}
}

// Update applies fn to the state on the actor goroutine and waits for it.
func (s *Server) Update(fn func(*State)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case s.requests <- req:
	case <-s.closed:
		return ErrServerClosed
	}

	<-req.done
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Server) Snapshot() State {
	var snap State
	if err := s.Update(func(st *State) {
		snap = st.clone()
	}); err != nil {
		// only shut down servers are closed
		return State{ShutdownInProgress: true}
	}

	return snap
}

// Close stops the actor goroutine.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *Server) Name() string {
	return s.name
}

func (s *Server) Bots() []*bot.Bot {
	return s.bots
}

func (s *Server) Bot(slot int) (*bot.Bot, error) {
	if slot < 0 || slot >= len(s.bots) {
		return nil, fmt.Errorf("%s slot %d: %w", s.name, slot, ErrBotNotFound)
	}

	return s.bots[slot], nil
}

// OverpopulateFactor is the number of bots kept per target slot.
func (s *Server) OverpopulateFactor() int {
	return s.cfg.OverpopulateFactor
}

func (s *Server) target(st State) query.Target {
	return query.Target{Address: st.Config.Address, Port: st.Config.Port, QueryPort: st.Config.QueryPort}
}

// SetCurrentSlots pins the slot target to n until Fill is called.
func (s *Server) SetCurrentSlots(n int) error {
	var err error
	if uerr := s.Update(func(st *State) {
		switch {
		case n < 0 || n > st.Config.Slots || n%2 != 0:
			err = fmt.Errorf("%d not even or outside [0, %d]: %w", n, st.Config.Slots, ErrInvalidSlots)
			return
		case st.PinnedSlots != nil && *st.PinnedSlots == n && st.TargetSlots() == n:
			err = ErrSlotsUnchanged
			return
		case n > 0 && len(s.bots) < n*s.cfg.OverpopulateFactor:
			err = fmt.Errorf("%d slots need %d bots, have %d: %w", n, n*s.cfg.OverpopulateFactor, len(s.bots), ErrNotEnoughBots)
			return
		}

		st.setCurrentSlots(n)
		st.PinnedSlots = &n
		st.CurrentSlotsTakenSince = time.Time{}
		st.AvailableSlotsFreeSince = time.Time{}
	}); uerr != nil {
		return uerr
	}
	if err != nil {
		return err
	}

	s.logger.Infof("slot target pinned to %d", n)
	if s.pins != nil {
		if err := s.pins.Store(model.Pin{Server: s.name, Slots: n, PinnedAt: s.now()}); err != nil {
			return fmt.Errorf("store pin: %w", err)
		}
	}

	return nil
}

// Fill removes any override, the target returns to the configured slots.
func (s *Server) Fill() error {
	if err := s.Update(func(st *State) {
		st.CurrentSlots = nil
		st.PinnedSlots = nil
		st.CurrentSlotsTakenSince = time.Time{}
		st.AvailableSlotsFreeSince = time.Time{}
	}); err != nil {
		return err
	}

	s.logger.Infof("slot target reset to default")
	if s.pins != nil {
		if err := s.pins.Delete(s.name); err != nil {
			return fmt.Errorf("delete pin: %w", err)
		}
	}

	return nil
}

// restorePin applies a persisted pin without validation side effects.
func (s *Server) restorePin(n int) error {
	return s.Update(func(st *State) {
		if n < 0 || n > st.Config.Slots || n%2 != 0 {
			return
		}
		st.setCurrentSlots(n)
		st.PinnedSlots = &n
	})
}

// SetEnabled toggles one bot, the next maintenance run reconciles its process.
func (s *Server) SetEnabled(slot int, enabled bool) error {
	b, err := s.Bot(slot)
	if err != nil {
		return err
	}

	b.SetEnabled(enabled)
	return nil
}

func (s *Server) SetAllEnabled(enabled bool) {
	for _, b := range s.bots {
		b.SetEnabled(enabled)
	}
}

// RestartBot makes an in-game bot leave and rejoin with the same process.
func (s *Server) RestartBot(ctx context.Context, slot int) error {
	b, err := s.Bot(slot)
	if err != nil {
		return err
	}

	if !b.IsBotRunning() {
		return fmt.Errorf("%s slot %d: %w", s.name, slot, ErrBotNotRunning)
	}

	s.logger.Infof("restarting %s", b.Nickname())
	if !b.Restart(ctx, s.cfg.StopWaitAttempts) {
		return fmt.Errorf("%s slot %d: %w", s.name, slot, ErrRestartFailed)
	}

	return nil
}

// Shutdown stops every bot and closes the actor. Maintenance runs are
// skipped from here on.
func (s *Server) Shutdown(ctx context.Context) {
	_ = s.Update(func(st *State) {
		st.ShutdownInProgress = true
	})

	var wg sync.WaitGroup
	for _, b := range s.bots {
		wg.Add(1)
		go func(b *bot.Bot) {
			defer wg.Done()
			s.stopAndKill(ctx, b)
		}(b)
	}
	wg.Wait()

	s.Close()
	s.logger.Infof("all bots stopped")
}

func (s *Server) stopAndKill(ctx context.Context, b *bot.Bot) {
	if !b.IsLaunched() {
		return
	}

	if b.Stop() {
		b.WaitForStop(ctx, s.cfg.StopWaitAttempts)
	}

	if err := b.Kill(); err != nil {
		s.logger.Errorf("failed to kill %s: %v", b.Nickname(), err)
	}
}
