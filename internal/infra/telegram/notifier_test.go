//go:build !integration

package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"vip-billing/internal/domain/model"
)

type fakeSender struct {
	sent  []tgbotapi.MessageConfig
	err   error
	delay time.Duration
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

func fixtures() (*model.Payment, *model.Subscription) {
	exp := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	p := &model.Payment{ID: "pay-1", Amount: 4990, Payer: model.Payer{Name: "Maria", Document: "12345678900"}}
	s := &model.Subscription{ID: "sub-1", UserID: "user-1", ExpiresAt: &exp}
	return p, s
}

func TestActivationNotifier(t *testing.T) {
	logger := zerolog.Nop()
	p, s := fixtures()

	t.Run("sends a redacted message", func(t *testing.T) {
		bot := &fakeSender{}
		n := newActivationNotifier(bot, 42, false, &logger)
		if err := n.SubscriptionActivated(context.Background(), p, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(bot.sent) != 1 || bot.sent[0].ChatID != 42 {
			t.Fatalf("unexpected messages: %+v", bot.sent)
		}
		text := bot.sent[0].Text
		if !strings.Contains(text, "R$ 49,90") || !strings.Contains(text, "user-1") {
			t.Errorf("unexpected text: %s", text)
		}
		if strings.Contains(text, "12345678900") {
			t.Error("payer document must be redacted outside dev mode")
		}
	})

	t.Run("surfaces send errors", func(t *testing.T) {
		n := newActivationNotifier(&fakeSender{err: errors.New("forbidden")}, 42, false, &logger)
		if err := n.SubscriptionActivated(context.Background(), p, s); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("honors context deadline", func(t *testing.T) {
		n := newActivationNotifier(&fakeSender{delay: 200 * time.Millisecond}, 42, false, &logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := n.SubscriptionActivated(ctx, p, s); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	})
}

func TestFormatCents(t *testing.T) {
	cases := map[int64]string{4990: "R$ 49,90", 5: "R$ 0,05", 44990: "R$ 449,90", -100: "-R$ 1,00"}
	for in, want := range cases {
		if got := formatCents(in); got != want {
			t.Errorf("formatCents(%d) = %s, want %s", in, got, want)
		}
	}
}
