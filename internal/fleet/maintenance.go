package fleet

import (
	"context"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ModPath maps the game variant reported by the server to the mod path bots join with.
func ModPath(gameVariant string) string {
	return "mods/" + gameVariant
}

// MaintainBots runs one bot maintenance pass. It returns false when a pass is
// already running.
func (s *Server) MaintainBots(ctx context.Context) bool {
	if !s.botMaintenanceRunning.CompareAndSwap(false, true) {
		s.logger.Warnf("bot maintenance is already running, skipping")
		return false
	}
	defer s.botMaintenanceRunning.Store(false)

	logger := s.logger.With("run", uuid.NewString())
	st := s.Snapshot()
	if st.ShutdownInProgress {
		return true
	}

	logger.Debugf("running bot maintenance")
	mod := st.Config.Mod
	info, err := s.query.GetServerInfo(ctx, s.target(st))
	if err != nil {
		logger.Errorf("failed to refresh mod: %v", err)
	} else if info.GameVariant != "" {
		mod = ModPath(info.GameVariant)
		if mod != st.Config.Mod {
			logger.Infof("server switched mod %s -> %s", st.Config.Mod, mod)
			_ = s.Update(func(st *State) {
				st.Config.Mod = mod
			})
		}
	}

	target := st.TargetSlots()
	maxPopulation := target * s.cfg.OverpopulateFactor

	filled, population := 0, 0
	teams := make(map[int]int)
	for _, b := range s.bots {
		status := b.Status()
		if status.Enabled {
			population++
		}
		if status.OnServer {
			filled++
			teams[status.Team]++
		}
	}

	for _, b := range s.bots {
		if ctx.Err() != nil || s.Snapshot().ShutdownInProgress {
			return true
		}

		blog := logger.With("slot", b.Config().Slot, "nickname", b.Nickname())
		changed, err := b.UpdateMod(mod)
		if err != nil {
			blog.Errorf("failed to update mod: %v", err)
		}
		if changed {
			if b.IsLaunched() {
				blog.Infof("mod changed, stopping bot")
				s.stopAndKill(ctx, b)
			}
			continue
		}

		status := b.Status()
		switch {
		case !status.Enabled:
			if filled < target && population < maxPopulation {
				blog.Debugf("enabling, %d/%d filled, population %d/%d", filled, target, population, maxPopulation)
				b.SetEnabled(true)
				population++
			}
		case status.OnServer:
			if teams[status.Team] > target/2 && filled > target {
				blog.Debugf("disabling, team %d has %d bots, %d/%d filled", status.Team, teams[status.Team], filled, target)
				b.SetEnabled(false)
				population--
				filled--
				teams[status.Team]--
			}
		default:
			if population > maxPopulation || filled >= target {
				blog.Debugf("disabling, %d/%d filled, population %d/%d", filled, target, population, maxPopulation)
				b.SetEnabled(false)
				population--
			}
		}

		s.reconcile(ctx, b, blog)
	}

	logger.Debugf("bot maintenance complete, %d/%d filled, population %d", filled, target, population)
	return true
}

// reconcile drives the process of b towards its enabled flag.
func (s *Server) reconcile(ctx context.Context, b *bot.Bot, logger *zap.SugaredLogger) {
	status := b.Status()
	switch {
	case status.Enabled && !status.ProcessRunning:
		if err := b.Relaunch(ctx); err != nil {
			logger.Errorf("failed to launch: %v", err)
			return
		}
		if err := util.Sleep(ctx, s.cfg.LaunchSpacing); err != nil {
			return
		}
		if st := b.Status(); st.CLIReady && !st.BotRunning {
			b.Start()
		}
		return
	case status.Enabled && status.CLIReady && !status.BotRunning:
		b.Start()
	case !status.Enabled && status.ProcessRunning:
		logger.Infof("disabled, stopping bot")
		s.stopAndKill(ctx, b)
		return
	}

	if status.Enabled && status.ProcessRunning && s.shouldCycle(status, s.now()) {
		logger.Warnf("not seen on server since %s, rotating identifiers", status.LastSeenOnServerAt)
		if err := b.RotateIdentifiers(true, true); err != nil {
			logger.Errorf("failed to rotate identifiers: %v", err)
		}
		s.stopAndKill(ctx, b)
	}
}

// shouldCycle reports whether a bot joined long ago but is missing from the
// server according to a recent status check.
func (s *Server) shouldCycle(st bot.Status, now time.Time) bool {
	started := st.BotStartedAt
	if started.IsZero() {
		started = st.ProcessStartedAt
	}
	if started.IsZero() || now.Sub(started) <= s.cfg.JoinTimeout {
		return false
	}

	if st.OnServer || st.OnServerLastCheckedAt.IsZero() || now.Sub(st.OnServerLastCheckedAt) > s.cfg.StatusUpdateTimeout {
		return false
	}

	return st.LastSeenOnServerAt.IsZero() || now.Sub(st.LastSeenOnServerAt) > s.cfg.OnServerTimeout
}

// MaintainSlots runs the team balance and reserved slot checks.
func (s *Server) MaintainSlots(ctx context.Context) bool {
	if !s.slotMaintenanceRunning.CompareAndSwap(false, true) {
		s.logger.Warnf("slot maintenance is already running, skipping")
		return false
	}
	defer s.slotMaintenanceRunning.Store(false)

	if err := s.EnsureTeamBalance(ctx); err != nil {
		s.logger.Debugf("team balance check failed: %v", err)
	}

	if err := s.EnsureReservedSlots(ctx, false); err != nil {
		s.logger.Debugf("free slot check failed: %v", err)
	}

	return true
}

// LaunchBots applies the startup slot check and runs a first maintenance pass.
func (s *Server) LaunchBots(ctx context.Context) {
	if err := s.EnsureReservedSlots(ctx, true); err != nil {
		s.logger.Warnf("startup slot check failed, launching with configured slots: %v", err)
	}

	s.MaintainBots(ctx)
}
