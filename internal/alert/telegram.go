package alert

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram delivers alerts to a chat. The permission handshake maps onto
// bot reachability: undetermined until requested, granted once the bot
// identity is confirmed, denied when Telegram rejects the token.
type Telegram struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	permission Permission
}

// NewTelegram builds the channel without contacting Telegram yet.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram alerts need a token and chat id")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return &Telegram{chatID: chatID, permission: PermissionDenied}, nil
	}
	return &Telegram{bot: bot, chatID: chatID, permission: PermissionUndetermined}, nil
}

func (t *Telegram) Permission() Permission { return t.permission }

// RequestPermission confirms the bot identity once and caches the outcome.
func (t *Telegram) RequestPermission() Permission {
	if t.permission != PermissionUndetermined {
		return t.permission
	}
	if t.bot == nil {
		t.permission = PermissionDenied
		return t.permission
	}
	if _, err := t.bot.GetMe(); err != nil {
		t.permission = PermissionDenied
	} else {
		t.permission = PermissionGranted
	}
	return t.permission
}

func (t *Telegram) Alert(title, message string) error {
	if t.RequestPermission() != PermissionGranted {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s\n%s", title, message))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}
