package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/sirupsen/logrus"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/models"
)

// TelegramNotifier sends operator alerts through a Telegram bot
type TelegramNotifier struct {
	bot     *telego.Bot
	chatID  telego.ChatID
	timeout time.Duration
	logger  *logrus.Logger
}

// NewTelegramNotifier builds a notifier from the telegram config block
func NewTelegramNotifier(cfg models.TelegramConfig, logger *logrus.Logger, opts ...telego.BotOption) (*TelegramNotifier, error) {
	chatID, err := parseChatID(cfg.ChatID)
	if err != nil {
		return nil, err
	}

	opts = append([]telego.BotOption{telego.WithDiscardLogger()}, opts...)
	bot, err := telego.NewBot(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		timeout: time.Duration(constants.DefaultNotifyTimeoutSec) * time.Second,
		logger:  logger,
	}, nil
}

// parseChatID accepts a numeric chat id or an @channel username
func parseChatID(raw string) (telego.ChatID, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return tu.Username(raw), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return telego.ChatID{}, fmt.Errorf("invalid telegram chat id %q: %w", raw, err)
	}
	return tu.ID(id), nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if _, err := n.bot.SendMessage(ctx, tu.Message(n.chatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// NotifyPairing sends the pairing QR code as a photo
func (n *TelegramNotifier) NotifyPairing(ctx context.Context, accountID string, png []byte) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	photo := tu.Photo(n.chatID, tu.File(tu.NameReader(bytes.NewReader(png), accountID+"-qr.png"))).
		WithCaption(fmt.Sprintf("Scan to pair WhatsApp account %s", accountID))
	if _, err := n.bot.SendPhoto(ctx, photo); err != nil {
		return fmt.Errorf("failed to send telegram photo: %w", err)
	}
	return nil
}

// NoopNotifier drops every alert
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string) error { return nil }

func (NoopNotifier) NotifyPairing(context.Context, string, []byte) error { return nil }

// NewNotifier returns the Telegram notifier when enabled, otherwise a no-op
func NewNotifier(cfg models.NotificationsConfig, logger *logrus.Logger) (Notifier, error) {
	if !cfg.Telegram.Enabled {
		return NoopNotifier{}, nil
	}
	n, err := NewTelegramNotifier(cfg.Telegram, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Telegram notifications enabled")
	return n, nil
}
