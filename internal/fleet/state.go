package fleet

import "time"

// ServerConfig is the static description of a game server.
type ServerConfig struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Port          int    `json:"port"`
	QueryPort     int    `json:"queryPort,omitempty"`
	Mod           string `json:"mod"`
	Slots         int    `json:"slots"`
	ReservedSlots int    `json:"reservedSlots"`
	Autobalance   bool   `json:"autobalance"`
	QueryDirectly bool   `json:"queryDirectly"`
}

// State is the mutable allocation state of a server. It is owned by the
// server's actor goroutine, everyone else works on copies.
type State struct {
	Config ServerConfig `json:"config"`

	// CurrentSlots overrides Config.Slots when set.
	CurrentSlots *int `json:"currentSlots,omitempty"`
	// PinnedSlots is an operator override, the allocator never raises
	// CurrentSlots above it.
	PinnedSlots *int `json:"pinnedSlots,omitempty"`

	CurrentSlotsTakenSince  time.Time `json:"currentSlotsTakenSince"`
	AvailableSlotsFreeSince time.Time `json:"availableSlotsFreeSince"`

	AutobalanceInProgress bool      `json:"autobalanceInProgress"`
	AutobalanceStartedAt  time.Time `json:"autobalanceStartedAt"`

	ShutdownInProgress bool `json:"shutdownInProgress"`
}

// TargetSlots is the number of slots bots should fill right now.
func (s State) TargetSlots() int {
	if s.CurrentSlots != nil {
		return *s.CurrentSlots
	}

	return s.Config.Slots
}

// Ceiling is the highest slot target the allocator may grant.
func (s State) Ceiling() int {
	if s.PinnedSlots != nil && *s.PinnedSlots < s.Config.Slots {
		return *s.PinnedSlots
	}

	return s.Config.Slots
}

func (s *State) setCurrentSlots(n int) {
	s.CurrentSlots = &n
}

func (s State) clone() State {
	c := s
	if s.CurrentSlots != nil {
		v := *s.CurrentSlots
		c.CurrentSlots = &v
	}
	if s.PinnedSlots != nil {
		v := *s.PinnedSlots
		c.PinnedSlots = &v
	}

	return c
}

// evenFloor rounds n down to an even number, teams must stay even-sized.
func evenFloor(n int) int {
	if n <= 0 {
		return 0
	}

	return n - n%2
}
