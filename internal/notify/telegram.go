package notify

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// Sender is the part of *tele.Bot used to deliver messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramSink sends each event as a private message to the user it concerns.
type TelegramSink struct {
	sender Sender
}

// NewTelegramSink creates a TelegramSink.
func NewTelegramSink(sender Sender) *TelegramSink {
	return &TelegramSink{sender: sender}
}

// Name implements Sink.
func (s *TelegramSink) Name() string {
	return "telegram"
}

// Send implements Sink. Every event is attempted; the joined errors are returned.
func (s *TelegramSink) Send(ctx context.Context, events []Event) error {
	var errs []error
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.sender.Send(tele.ChatID(e.UserID), e.Text()); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", e.UserID, err))
		}
	}
	return errors.Join(errs...)
}
