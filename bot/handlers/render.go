package handlers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/core/logger"
	"log/slog"
)

// swapKeyboard is the one place the keyboard protocol lives: retract the
// previously shown interactive message (non-fatal, it may already be gone),
// send the new one, and overwrite the tracked identifier. Callers never
// touch last_keyboard_id directly.
func (e *Engine) swapKeyboard(ctx context.Context, userID int64, sess *session.Session, text string, markup *tele.ReplyMarkup) error {
	if id, ok := sess.LastKeyboard(); ok {
		if err := e.out.Delete(ctx, userID, id); err != nil {
			logger.TG.Debug("stale keyboard retraction failed",
				slog.String("event", "engine.keyboard.retract"),
				slog.Int64("user_id", userID),
				slog.Int("message_id", id),
				slog.String("cause", err.Error()),
			)
		}
	}
	id, err := e.out.Send(ctx, userID, text, markup)
	if err != nil {
		// The transition still commits; the old message is gone, so stop
		// tracking it rather than pointing at a retracted keyboard.
		logger.TG.Warn("keyboard delivery failed",
			slog.String("event", "engine.keyboard.send"),
			slog.Int64("user_id", userID),
			slog.String("cause", err.Error()),
		)
		sess.RecordKeyboard(0)
		return nil
	}
	sess.RecordKeyboard(id)
	return nil
}

// editKeyboard rewrites the tracked interactive message in place, keeping
// its identifier. Used for menu navigation where the message itself should
// not jump in the chat; falls back to a full swap when there is nothing to
// edit or the edit is rejected.
func (e *Engine) editKeyboard(ctx context.Context, userID int64, sess *session.Session, text string, markup *tele.ReplyMarkup) error {
	id, ok := sess.LastKeyboard()
	if !ok {
		return e.swapKeyboard(ctx, userID, sess, text, markup)
	}
	if err := e.out.Edit(ctx, userID, id, text, markup); err != nil {
		logger.TG.Debug("keyboard edit failed, replacing the message",
			slog.String("event", "engine.keyboard.edit"),
			slog.Int64("user_id", userID),
			slog.Int("message_id", id),
			slog.String("cause", err.Error()),
		)
		return e.swapKeyboard(ctx, userID, sess, text, markup)
	}
	return nil
}
