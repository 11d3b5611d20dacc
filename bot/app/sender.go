package app

import (
	"context"
	"errors"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/bot/outbound"
)

var errSenderUnbound = errors.New("app: outbound sender not bound yet")

// lazySender satisfies outbound.Sender before the Telegram bot exists, so
// the engine can be constructed at bootstrap and bound at startup. An
// update cannot arrive before binding: the runtime binds in OnStart, ahead
// of polling.
type lazySender struct {
	v atomic.Pointer[outbound.TeleSender]
}

func (s *lazySender) bind(t *outbound.TeleSender) {
	s.v.Store(t)
}

func (s *lazySender) get() (outbound.Sender, error) {
	if t := s.v.Load(); t != nil {
		return t, nil
	}
	return nil, errSenderUnbound
}

func (s *lazySender) Send(ctx context.Context, userID int64, text string, markup *tele.ReplyMarkup) (int, error) {
	t, err := s.get()
	if err != nil {
		return 0, err
	}
	return t.Send(ctx, userID, text, markup)
}

func (s *lazySender) Notify(ctx context.Context, userID int64, text string, markup *tele.ReplyMarkup) error {
	t, err := s.get()
	if err != nil {
		return err
	}
	return t.Notify(ctx, userID, text, markup)
}

func (s *lazySender) Edit(ctx context.Context, userID int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	t, err := s.get()
	if err != nil {
		return err
	}
	return t.Edit(ctx, userID, messageID, text, markup)
}

func (s *lazySender) Delete(ctx context.Context, userID int64, messageID int) error {
	t, err := s.get()
	if err != nil {
		return err
	}
	return t.Delete(ctx, userID, messageID)
}

func (s *lazySender) SendLocation(ctx context.Context, userID int64, lat, lon float64) error {
	t, err := s.get()
	if err != nil {
		return err
	}
	return t.SendLocation(ctx, userID, lat, lon)
}
