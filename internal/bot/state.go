package bot

import (
	"fmt"
	"time"
)

type State uint8

const (
	StateDisabled State = iota + 1
	StateStopped
	// process spawned, command prompt not seen yet
	StateStarting
	// process idle, bot not in game
	StateClientDown
	// bot in game
	StateClientUp
	// stop command sent, waiting for confirmation
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateClientDown:
		return "client down"
	case StateClientUp:
		return "client up"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for candidate := StateDisabled; candidate <= StateStopping; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}

	return fmt.Errorf("unknown bot state %q", text)
}

// Status is a point in time copy of a bot's runtime state.
type Status struct {
	State                 State     `json:"state"`
	Enabled               bool      `json:"enabled"`
	ProcessRunning        bool      `json:"processRunning"`
	BotRunning            bool      `json:"botRunning"`
	CLIReady              bool      `json:"cliReady"`
	OnServer              bool      `json:"onServer"`
	Team                  int       `json:"team"`
	ProcessStartedAt      time.Time `json:"processStartedAt"`
	BotStartedAt          time.Time `json:"botStartedAt"`
	OnServerLastCheckedAt time.Time `json:"onServerLastCheckedAt"`
	LastSeenOnServerAt    time.Time `json:"lastSeenOnServerAt"`
}

// status holds the process phase as a single tagged value; the booleans of
// Status are derived from it so a running bot without a process cannot exist.
type status struct {
	enabled  bool
	phase    State
	cliReady bool

	onServer bool
	team     int

	processStartedAt      time.Time
	botStartedAt          time.Time
	onServerLastCheckedAt time.Time
	lastSeenOnServerAt    time.Time
}

func newStatus() status {
	return status{phase: StateStopped}
}

func (s *status) processRunning() bool {
	return s.phase != StateStopped
}

func (s *status) botRunning() bool {
	return s.phase == StateClientUp || s.phase == StateStopping
}

func (s *status) spawned(now time.Time) {
	s.phase = StateStarting
	s.cliReady = false
	s.processStartedAt = now
	s.botStartedAt = time.Time{}
}

// exited resets everything process related, whatever the cause of the exit.
func (s *status) exited() {
	s.phase = StateStopped
	s.cliReady = false
	s.processStartedAt = time.Time{}
	s.botStartedAt = time.Time{}
}

// apply handles an output event and reports whether the state changed.
func (s *status) apply(e Event, now time.Time) bool {
	if !s.processRunning() {
		return false
	}

	switch e {
	case EventReady:
		changed := !s.cliReady
		s.cliReady = true
		if s.phase == StateStarting {
			s.phase = StateClientDown
			changed = true
		}
		return changed
	case EventStarted:
		if s.botRunning() {
			return false
		}
		s.phase = StateClientUp
		s.botStartedAt = now
		return true
	case EventStopped:
		if !s.botRunning() {
			return false
		}
		s.phase = StateClientDown
		s.botStartedAt = time.Time{}
		return true
	default:
		return false
	}
}

func (s *status) snapshot() Status {
	st := s.phase
	if st == StateStopped && !s.enabled {
		st = StateDisabled
	}

	return Status{
		State:                 st,
		Enabled:               s.enabled,
		ProcessRunning:        s.processRunning(),
		BotRunning:            s.botRunning(),
		CLIReady:              s.cliReady,
		OnServer:              s.onServer,
		Team:                  s.team,
		ProcessStartedAt:      s.processStartedAt,
		BotStartedAt:          s.botStartedAt,
		OnServerLastCheckedAt: s.onServerLastCheckedAt,
		LastSeenOnServerAt:    s.lastSeenOnServerAt,
	}
}
