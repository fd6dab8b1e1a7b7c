package tgbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bloops-games/botmanager/internal/fleet"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/tgbot/resource"
)

func (m *Manager) handleHelpCmd(_ context.Context, chatID int64, _ []string) error {
	return m.reply(chatID, resource.TextHelpMsg)
}

func (m *Manager) handleStatusCmd(_ context.Context, chatID int64, args []string) error {
	var serverName string
	var detailed bool
	for _, arg := range args {
		if arg == resource.ArgDetailed {
			detailed = true
			continue
		}
		if b, err := strconv.ParseBool(arg); err == nil {
			detailed = b
			continue
		}
		serverName = arg
	}

	servers, ok := m.selectServers(serverName)
	if !ok {
		return m.reply(chatID, fmt.Sprintf(resource.TextServerNotFoundHintMsg, serverName, m.serverHint()))
	}
	if len(servers) == 0 {
		return m.reply(chatID, resource.TextNoServers)
	}

	now := m.now()
	launched := m.fleet.LaunchComplete()
	for _, s := range servers {
		if err := m.reply(chatID, renderStatus(s, detailed, launched, now)); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) handleFillCmd(_ context.Context, chatID int64, args []string) error {
	serverName := firstArg(args)
	servers, ok := m.selectServers(serverName)
	if !ok {
		return m.reply(chatID, fmt.Sprintf(resource.TextServerNotFoundMsg, serverName))
	}
	if len(servers) == 0 {
		return m.reply(chatID, resource.TextNoServers)
	}

	for _, s := range servers {
		if err := s.Fill(); err != nil {
			return fmt.Errorf("fill %s: %w", s.Name(), err)
		}
	}

	if serverName != "" {
		return m.reply(chatID, fmt.Sprintf(resource.TextFillServerMsg, serverName))
	}

	return m.reply(chatID, resource.TextFillAllMsg)
}

func (m *Manager) handleClearCmd(_ context.Context, chatID int64, args []string) error {
	serverName := firstArg(args)
	servers, ok := m.selectServers(serverName)
	if !ok {
		return m.reply(chatID, fmt.Sprintf(resource.TextServerNotFoundMsg, serverName))
	}
	if len(servers) == 0 {
		return m.reply(chatID, resource.TextNoServers)
	}

	for _, s := range servers {
		if err := s.SetCurrentSlots(0); err != nil && !errors.Is(err, fleet.ErrSlotsUnchanged) {
			return fmt.Errorf("clear %s: %w", s.Name(), err)
		}
	}

	if serverName != "" {
		return m.reply(chatID, fmt.Sprintf(resource.TextClearServerMsg, serverName))
	}

	return m.reply(chatID, resource.TextClearAllMsg)
}

func (m *Manager) handleSetSlotsCmd(_ context.Context, chatID int64, args []string) error {
	if len(args) != 2 {
		return m.reply(chatID, resource.TextSetSlotsUsageMsg)
	}

	slots, err := strconv.Atoi(args[1])
	if err != nil {
		return m.reply(chatID, resource.TextSetSlotsUsageMsg)
	}

	s, err := m.fleet.Server(args[0])
	if err != nil {
		return m.reply(chatID, fmt.Sprintf(resource.TextServerNotFoundMsg, args[0]))
	}

	st := s.Snapshot()
	current := st.TargetSlots()
	err = s.SetCurrentSlots(slots)
	switch {
	case errors.Is(err, fleet.ErrNotEnoughBots):
		return m.reply(chatID, fmt.Sprintf(resource.TextNotEnoughBotsMsg, s.Name(), slots, len(s.Bots()), slots*s.OverpopulateFactor()))
	case errors.Is(err, fleet.ErrSlotsUnchanged):
		return m.reply(chatID, fmt.Sprintf(resource.TextSlotsUnchangedMsg, s.Name(), slots))
	case errors.Is(err, fleet.ErrInvalidSlots):
		return m.reply(chatID, fmt.Sprintf(resource.TextInvalidSlotsMsg, slots, s.Name(), st.Config.Slots))
	case err != nil:
		return fmt.Errorf("set slots %s: %w", s.Name(), err)
	}

	switch {
	case slots > current:
		return m.reply(chatID, fmt.Sprintf(resource.TextSlotsIncreasedMsg, s.Name(), current, slots))
	case slots < current:
		return m.reply(chatID, fmt.Sprintf(resource.TextSlotsDecreasedMsg, s.Name(), current, slots))
	default:
		return m.reply(chatID, fmt.Sprintf(resource.TextSlotsPinnedMsg, s.Name(), slots))
	}
}

func (m *Manager) handleSetEnabledCmd(_ context.Context, chatID int64, args []string) error {
	if len(args) != 3 {
		return m.reply(chatID, resource.TextSetEnabledUsageMsg)
	}

	serverName, botName := args[0], args[1]
	enabled, err := strconv.ParseBool(args[2])
	if err != nil {
		return m.reply(chatID, resource.TextSetEnabledUsageMsg)
	}

	s, err := m.fleet.Server(serverName)
	if err != nil {
		return m.reply(chatID, fmt.Sprintf(resource.TextBotNotFoundMsg, botName, serverName))
	}

	if botName == resource.ArgAll {
		s.SetAllEnabled(enabled)
		if enabled {
			return m.reply(chatID, fmt.Sprintf(resource.TextAllBotsEnabledMsg, serverName))
		}
		return m.reply(chatID, fmt.Sprintf(resource.TextAllBotsDisabledMsg, serverName))
	}

	slot, ok := findBot(s, botName)
	if !ok {
		return m.reply(chatID, fmt.Sprintf(resource.TextBotNotFoundMsg, botName, serverName))
	}

	b, err := s.Bot(slot)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}

	switch {
	case b.Enabled() == enabled && enabled:
		return m.reply(chatID, fmt.Sprintf(resource.TextBotAlreadyEnabledMsg, botName))
	case b.Enabled() == enabled:
		return m.reply(chatID, fmt.Sprintf(resource.TextBotAlreadyDisabledMsg, botName))
	}

	if err := s.SetEnabled(slot, enabled); err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}

	if enabled {
		return m.reply(chatID, fmt.Sprintf(resource.TextBotEnabledMsg, botName, serverName))
	}

	return m.reply(chatID, fmt.Sprintf(resource.TextBotDisabledMsg, botName, serverName))
}

func (m *Manager) handleRestartCmd(ctx context.Context, chatID int64, args []string) error {
	if len(args) != 2 {
		return m.reply(chatID, resource.TextRestartUsageMsg)
	}

	serverName, botName := args[0], args[1]
	s, err := m.fleet.Server(serverName)
	if err != nil {
		return m.reply(chatID, fmt.Sprintf(resource.TextBotNotFoundMsg, botName, serverName))
	}

	slot, ok := findBot(s, botName)
	if !ok {
		return m.reply(chatID, fmt.Sprintf(resource.TextBotNotFoundMsg, botName, serverName))
	}

	b, err := s.Bot(slot)
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	if !b.IsBotRunning() {
		return m.reply(chatID, fmt.Sprintf(resource.TextBotNotRunningMsg, botName, serverName))
	}

	// waits for the bot to leave, far longer than a reply may take
	go func() {
		if err := s.RestartBot(ctx, slot); err != nil {
			logging.FromContext(ctx).Named("tgbot.handleRestartCmd").Errorf("failed to restart %s on %s: %v", botName, serverName, err)
		}
	}()

	return m.reply(chatID, fmt.Sprintf(resource.TextBotRestartingMsg, botName, serverName))
}

// findBot returns the slot of the bot with the given basename.
func findBot(s *fleet.Server, basename string) (int, bool) {
	for _, b := range s.Bots() {
		if c := b.Config(); c.Basename == basename {
			return c.Slot, true
		}
	}

	return 0, false
}

// selectServers returns every server for an empty name. ok is false when a
// named server does not exist.
func (m *Manager) selectServers(name string) ([]*fleet.Server, bool) {
	if name == "" {
		return m.fleet.Servers(), true
	}

	s, err := m.fleet.Server(name)
	if err != nil {
		return nil, false
	}

	return []*fleet.Server{s}, true
}

func (m *Manager) serverHint() string {
	names := make([]string, 0, 2)
	for _, s := range m.fleet.Servers() {
		if len(names) == 2 {
			break
		}
		names = append(names, strconv.Quote(s.Name()))
	}

	return strings.Join(names, ", ")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
