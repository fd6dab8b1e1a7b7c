package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/botmanager/internal/query"
)

// two teams are modelled, ids 1 and 2
func teamDelta(teams map[int]int) (delta, smaller int) {
	a, b := teams[1], teams[2]
	if a < b {
		return b - a, a
	}

	return a - b, b
}

func playerTeams(info query.ServerInfo) map[int]int {
	teams := make(map[int]int)
	for _, p := range info.Players {
		teams[p.Team]++
	}

	return teams
}

// EnsureTeamBalance shrinks the slot target while bot teams are uneven so the
// smaller team can catch up. Player teams are assumed to be roughly even,
// which is not enforced; after the max duration the attempt is abandoned.
func (s *Server) EnsureTeamBalance(ctx context.Context) error {
	st := s.Snapshot()
	if st.ShutdownInProgress || !st.Config.Autobalance {
		return nil
	}

	info, err := s.query.GetServerInfo(ctx, s.target(st))
	if err != nil {
		s.logger.Errorf("failed to query server for team balance check: %v", err)
		return fmt.Errorf("ensure team balance: %w", err)
	}

	botsFilled, botTeams := botsOnServer(s.bots, info)
	botDelta, smaller := teamDelta(botTeams)
	playerDelta, _ := teamDelta(playerTeams(info))
	now := s.now()

	return s.Update(func(st *State) {
		s.balance(st, botsFilled, botDelta, smaller, playerDelta, now)
	})
}

func (s *Server) balance(st *State, botsFilled, botDelta, smaller, playerDelta int, now time.Time) {
	current := st.TargetSlots()

	if !st.AutobalanceInProgress {
		if current == 0 || botsFilled < current || botDelta == 0 {
			return
		}

		next := smaller * 2
		if next > st.Config.Slots {
			next = st.Config.Slots
		}
		s.logger.Infof("bot teams imbalanced by %d, reducing bot slots %d -> %d", botDelta, current, next)
		st.setCurrentSlots(next)
		st.AutobalanceInProgress = true
		st.AutobalanceStartedAt = now
		return
	}

	if now.Sub(st.AutobalanceStartedAt) > s.cfg.AutobalanceMaxDuration {
		s.logger.Warnf("autobalance did not complete within %s, aborting", s.cfg.AutobalanceMaxDuration)
		st.AutobalanceInProgress = false
		st.AutobalanceStartedAt = time.Time{}
		return
	}

	if botDelta == 0 && botsFilled == current && playerDelta <= 1 {
		s.logger.Infof("teams balanced")
		st.AutobalanceInProgress = false
		st.AutobalanceStartedAt = time.Time{}
		return
	}

	s.logger.Debugf("waiting for teams to balance, bot delta %d, player delta %d", botDelta, playerDelta)
}
