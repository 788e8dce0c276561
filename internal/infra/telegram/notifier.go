package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vip-billing/internal/config"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
	"vip-billing/internal/infra/logging"
)

var (
	_ adapter.Notifier = (*ActivationNotifier)(nil)
	_ adapter.Notifier = NoopNotifier{}
)

// sender is the slice of *tgbotapi.BotAPI the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ActivationNotifier posts a message to an operator chat for every activation.
type ActivationNotifier struct {
	bot    sender
	chatID int64
	dev    bool
	log    *zerolog.Logger
}

func NewActivationNotifier(cfg config.TelegramConfig, dev bool, logger *zerolog.Logger) (*ActivationNotifier, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, errors.New("telegram token and chat_id are required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newActivationNotifier(bot, cfg.ChatID, dev, logger), nil
}

func newActivationNotifier(bot sender, chatID int64, dev bool, logger *zerolog.Logger) *ActivationNotifier {
	l := logger.With().Str("component", "ActivationNotifier").Logger()
	return &ActivationNotifier{bot: bot, chatID: chatID, dev: dev, log: &l}
}

// SubscriptionActivated returns when the message is sent or ctx is done, whichever comes first.
func (n *ActivationNotifier) SubscriptionActivated(ctx context.Context, p *model.Payment, s *model.Subscription) error {
	msg := tgbotapi.NewMessage(n.chatID, n.render(p, s))
	msg.DisableWebPagePreview = true

	done := make(chan error, 1)
	go func() {
		_, err := n.bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		n.log.Debug().Str("payment_id", p.ID).Msg("activation announced")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *ActivationNotifier) render(p *model.Payment, s *model.Subscription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VIP activated\n")
	fmt.Fprintf(&b, "user: %s\n", s.UserID)
	fmt.Fprintf(&b, "amount: %s\n", formatCents(p.Amount))
	if p.Payer.Name != "" {
		fmt.Fprintf(&b, "payer: %s\n", p.Payer.Name)
	}
	if p.Payer.Document != "" {
		fmt.Fprintf(&b, "document: %s\n", logging.Redact(p.Payer.Document, n.dev))
	}
	if s.ExpiresAt != nil {
		fmt.Fprintf(&b, "expires: %s\n", s.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "payment: %s", p.ID)
	return b.String()
}

// formatCents renders minor units as R$ 49,90.
func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, c/100, c%100)
}

// NoopNotifier drops notifications; used when telegram is not configured.
type NoopNotifier struct{}

func (NoopNotifier) SubscriptionActivated(context.Context, *model.Payment, *model.Subscription) error {
	return nil
}
