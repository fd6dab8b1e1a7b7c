// Package tgbot exposes the fleet to operators over Telegram.
package tgbot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bloops-games/botmanager/internal/config"
	"github.com/bloops-games/botmanager/internal/fleet"
	"github.com/bloops-games/botmanager/internal/logging"
	"github.com/bloops-games/botmanager/internal/tgbot/resource"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

var ErrCommandNotFound = errors.New("command not found")

var _ Fleet = (*fleet.Manager)(nil)

// Fleet is the part of the fleet manager commands operate on.
type Fleet interface {
	Servers() []*fleet.Server
	Server(name string) (*fleet.Server, error)
	LaunchComplete() bool
}

// API is the subset of the Telegram client used by the manager.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) (tgbotapi.UpdatesChannel, error)
	StopReceivingUpdates()
}

type handlerFn func(ctx context.Context, chatID int64, args []string) error

type Manager struct {
	tg     API
	fleet  Fleet
	config config.Telegram
	admins map[string]struct{}
	now    func() time.Time

	handlers map[string]handlerFn
}

func NewManager(tg API, f Fleet, cfg config.Telegram) *Manager {
	admins := make(map[string]struct{}, len(cfg.Admins))
	for _, admin := range cfg.Admins {
		admins[strings.ToLower(strings.TrimPrefix(admin, "@"))] = struct{}{}
	}

	m := &Manager{
		tg:     tg,
		fleet:  f,
		config: cfg,
		admins: admins,
		now:    time.Now,
	}

	m.handlers = map[string]handlerFn{
		resource.CmdStart:      m.handleHelpCmd,
		resource.CmdHelp:       m.handleHelpCmd,
		resource.CmdStatus:     m.handleStatusCmd,
		resource.CmdFill:       m.launched(m.handleFillCmd),
		resource.CmdClear:      m.launched(m.handleClearCmd),
		resource.CmdSetSlots:   m.launched(m.handleSetSlotsCmd),
		resource.CmdSetEnabled: m.launched(m.handleSetEnabledCmd),
		resource.CmdRestart:    m.launched(m.handleRestartCmd),
	}

	return m
}

// Run polls updates and handles them on a worker pool until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("tgbot.Manager")

	upd := tgbotapi.NewUpdate(0)
	upd.Timeout = int(m.config.PollTimeout.Seconds())
	updates, err := m.tg.GetUpdatesChan(upd)
	if err != nil {
		return fmt.Errorf("tg get updates chan: %w", err)
	}

	var wg sync.WaitGroup
	poolWorkerNum := runtime.NumCPU()
	wg.Add(poolWorkerNum)
	for i := 0; i < poolWorkerNum; i++ {
		go m.pool(ctx, &wg, updates)
	}

	logger.Infof("telegram manager is running, %d workers", poolWorkerNum)
	<-ctx.Done()
	m.tg.StopReceivingUpdates()
	wg.Wait()

	return nil
}

func (m *Manager) pool(ctx context.Context, wg *sync.WaitGroup, updCh tgbotapi.UpdatesChannel) {
	defer wg.Done()
	logger := logging.FromContext(ctx).Named("tgbot.pool")
	for {
		select {
		case update, ok := <-updCh:
			if !ok {
				return
			}
			if err := m.HandleUpdate(ctx, update); err != nil {
				logger.Errorf("handle update %d: %v", update.UpdateID, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// HandleUpdate dispatches a single message to its command handler.
func (m *Manager) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	if upd.Message == nil || upd.Message.Chat == nil {
		return nil
	}

	cmd, args, ok := parseCommand(upd.Message.Text)
	if !ok {
		return nil
	}

	chatID := upd.Message.Chat.ID
	if !m.isAdmin(upd.Message.From) {
		return m.reply(chatID, resource.TextNotAdmin)
	}

	handler, ok := m.handlers[cmd]
	if !ok {
		if err := m.reply(chatID, resource.TextUnknownCommand); err != nil {
			return err
		}
		return fmt.Errorf("%s: %w", cmd, ErrCommandNotFound)
	}

	logging.FromContext(ctx).Named("tgbot.Manager").Infof("%s ran %s %s", upd.Message.From.UserName, cmd, strings.Join(args, " "))
	if err := handler(ctx, chatID, args); err != nil {
		return fmt.Errorf("handle %s: %w", cmd, err)
	}

	return nil
}

// parseCommand splits "/cmd@botname a b" into the command and its arguments.
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd), fields[1:], true
}

func (m *Manager) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := m.tg.Send(msg); err != nil {
		return fmt.Errorf("send msg: %w", err)
	}

	return nil
}
