package tgbot

import (
	"context"
	"strings"

	"github.com/bloops-games/botmanager/internal/tgbot/resource"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

func (m *Manager) isAdmin(u *tgbotapi.User) bool {
	if u == nil || u.UserName == "" {
		return false
	}

	_, ok := m.admins[strings.ToLower(u.UserName)]
	return ok
}

// launched refuses mutating commands until the initial bot launch is done.
func (m *Manager) launched(next handlerFn) handlerFn {
	return func(ctx context.Context, chatID int64, args []string) error {
		if !m.fleet.LaunchComplete() {
			return m.reply(chatID, resource.TextLaunchIncomplete)
		}

		return next(ctx, chatID, args)
	}
}
