// Package outbound is the single seam between the conversation logic and
// the Telegram transport. Everything the bot ever shows goes through a
// Sender, so the whole engine is testable with an in-memory fake.
package outbound

import (
	"context"
	"errors"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/core/telegram/sender"
)

// Sender renders outbound effects. Send is synchronous because callers need
// the new message identifier for keyboard bookkeeping; Notify is
// fire-and-forget for plain informational texts.
type Sender interface {
	// Send delivers text with an optional markup and returns the message id.
	Send(ctx context.Context, userID int64, text string, markup *tele.ReplyMarkup) (int, error)

	// Notify delivers text best-effort; delivery failures are logged, not
	// returned.
	Notify(ctx context.Context, userID int64, text string, markup *tele.ReplyMarkup) error

	// Edit replaces the text and markup of an already shown message.
	Edit(ctx context.Context, userID int64, messageID int, text string, markup *tele.ReplyMarkup) error

	// Delete retracts a message. Deleting an already gone message is not an
	// error the caller should see; use IsGone to classify.
	Delete(ctx context.Context, userID int64, messageID int) error

	// SendLocation delivers a location pin.
	SendLocation(ctx context.Context, userID int64, lat, lon float64) error
}

// IsBlocked reports whether the error means the user blocked or deleted the
// bot, i.e. no further sends to them can succeed.
func IsBlocked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, tele.ErrBlockedByUser) || errors.Is(err, tele.ErrUserIsDeactivated) {
		return true
	}
	var apiErr *tele.Error
	return errors.As(err, &apiErr) && apiErr.Code == 403
}

// TeleSender is the production Sender over a telebot instance. All texts are
// HTML-mode; Notify rides the asynchronous dispatcher when one is set.
type TeleSender struct {
	bot  *tele.Bot
	disp *sender.Dispatcher
}

func NewTeleSender(bot *tele.Bot, disp *sender.Dispatcher) *TeleSender {
	return &TeleSender{bot: bot, disp: disp}
}

var htmlOpts = &tele.SendOptions{
	ParseMode:             tele.ModeHTML,
	DisableWebPagePreview: true,
}

func recipient(userID int64) tele.Recipient {
	return tele.ChatID(userID)
}

func (s *TeleSender) Send(_ context.Context, userID int64, text string, markup *tele.ReplyMarkup) (int, error) {
	opts := *htmlOpts
	opts.ReplyMarkup = markup
	msg, err := s.bot.Send(recipient(userID), text, &opts)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (s *TeleSender) Notify(ctx context.Context, userID int64, text string, markup *tele.ReplyMarkup) error {
	opts := *htmlOpts
	opts.ReplyMarkup = markup
	run := func() error {
		_, err := s.bot.Send(recipient(userID), text, &opts)
		return err
	}
	if s.disp == nil {
		return run()
	}
	if err := s.disp.Enqueue(ctx, "notify", "sendMessage", run); err != nil {
		// Saturated or closed queue degrades to a synchronous send.
		return run()
	}
	return nil
}

func (s *TeleSender) Edit(_ context.Context, userID int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	opts := *htmlOpts
	opts.ReplyMarkup = markup
	_, err := s.bot.Edit(storedMessage(userID, messageID), text, &opts)
	return err
}

func (s *TeleSender) Delete(_ context.Context, userID int64, messageID int) error {
	return s.bot.Delete(storedMessage(userID, messageID))
}

func (s *TeleSender) SendLocation(_ context.Context, userID int64, lat, lon float64) error {
	loc := &tele.Location{Lat: float32(lat), Lng: float32(lon)}
	_, err := s.bot.Send(recipient(userID), loc)
	return err
}

func storedMessage(userID int64, messageID int) tele.Editable {
	return &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    userID,
	}
}

var _ Sender = (*TeleSender)(nil)
