package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/botmanager/internal/bot"
	"github.com/bloops-games/botmanager/internal/query"
)

// AvailableSlots is the number of slots bots may occupy without eating into
// the reserved capacity, rounded down to an even number.
func AvailableSlots(maxPlayers, totalFilled, botsFilled, reserved int) int {
	available := maxPlayers - (totalFilled - botsFilled) - reserved
	if available < 0 {
		available = 0
	}

	return evenFloor(available)
}

// botsOnServer counts the bots of this server present in info.
func botsOnServer(bots []*bot.Bot, info query.ServerInfo) (filled int, teams map[int]int) {
	teams = make(map[int]int)
	for _, b := range bots {
		if p, ok := info.FindPlayer(b.Nickname()); ok {
			filled++
			teams[p.Team]++
		}
	}

	return filled, teams
}

// EnsureReservedSlots moves the slot target towards the available slots.
// Reductions wait for the slot timeout, increases for the longer reserved slot
// timeout. On startup reductions apply at once.
func (s *Server) EnsureReservedSlots(ctx context.Context, startup bool) error {
	st := s.Snapshot()
	if st.ShutdownInProgress {
		return nil
	}

	info, err := s.query.GetServerInfo(ctx, s.target(st))
	if err != nil {
		s.logger.Errorf("failed to query server for slot check: %v", err)
		return fmt.Errorf("ensure reserved slots: %w", err)
	}

	botsFilled, _ := botsOnServer(s.bots, info)
	available := AvailableSlots(info.MaxPlayers, info.NumPlayers, botsFilled, st.Config.ReservedSlots)
	now := s.now()

	return s.Update(func(st *State) {
		s.allocate(st, available, startup, now)
	})
}

func (s *Server) allocate(st *State, available int, startup bool, now time.Time) {
	current := st.TargetSlots()
	ceiling := st.Ceiling()

	switch {
	case available < current:
		st.AvailableSlotsFreeSince = time.Time{}
		if startup || (!st.CurrentSlotsTakenSince.IsZero() && now.Sub(st.CurrentSlotsTakenSince) >= s.cfg.SlotTimeout) {
			s.logger.Infof("reducing bot slots %d -> %d", current, available)
			st.setCurrentSlots(available)
			st.CurrentSlotsTakenSince = time.Time{}
			return
		}

		if st.CurrentSlotsTakenSince.IsZero() {
			s.logger.Debugf("bot slots taken by players, %d available of %d", available, current)
			st.CurrentSlotsTakenSince = now
		}
	case available > current && current < ceiling && !st.AutobalanceInProgress:
		st.CurrentSlotsTakenSince = time.Time{}
		if !st.AvailableSlotsFreeSince.IsZero() && now.Sub(st.AvailableSlotsFreeSince) >= s.cfg.ReservedSlotTimeout {
			next := available
			if next > ceiling {
				next = ceiling
			}
			s.logger.Infof("increasing bot slots %d -> %d", current, next)
			st.setCurrentSlots(next)
			st.AvailableSlotsFreeSince = time.Time{}
			return
		}

		if st.AvailableSlotsFreeSince.IsZero() {
			s.logger.Debugf("slots freed up, %d available of %d", available, current)
			st.AvailableSlotsFreeSince = now
		}
	case available == current:
		st.CurrentSlotsTakenSince = time.Time{}
		st.AvailableSlotsFreeSince = time.Time{}
	default:
		// more available than allowed, nothing pending
		st.CurrentSlotsTakenSince = time.Time{}
		if !st.AutobalanceInProgress {
			st.AvailableSlotsFreeSince = time.Time{}
		}
	}
}
