// Package handlers is the conversation engine: it owns every state
// transition of the per-user dialogue. Handlers receive plain identifiers
// and inputs rather than transport objects, so the whole engine runs
// against fakes in tests; the Telegram adapter in bot/app translates
// updates into these calls.
package handlers

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/bot/cache"
	"github.com/concert-mate/bot/bot/keyboards"
	"github.com/concert-mate/bot/bot/outbound"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/bot/userservice"
	"github.com/concert-mate/bot/core/logger"
	"github.com/concert-mate/bot/core/telegram/format"
	"log/slog"
)

// Engine dispatches user actions against the session state machine. Every
// entry point runs under the session manager's per-user lock; an action for
// one user never interleaves with another action or a notification for the
// same user.
type Engine struct {
	sessions *session.Manager
	agent    userservice.Agent
	cache    *cache.Cache
	out      outbound.Sender
}

func NewEngine(sessions *session.Manager, agent userservice.Agent, results *cache.Cache, out outbound.Sender) *Engine {
	return &Engine{
		sessions: sessions,
		agent:    agent,
		cache:    results,
		out:      out,
	}
}

// OnStart handles /start: registers the user or welcomes them back.
func (e *Engine) OnStart(ctx context.Context, userID int64, username string) error {
	return e.sessions.Do(ctx, userID, func(sess *session.Session) error {
		prev := sess.State
		if err := e.toWaiting(ctx, userID, sess); err != nil {
			return err
		}

		err := e.agent.CreateUser(ctx, userID)
		switch {
		case err == nil:
			v := sess.Version
			*sess = *session.New()
			sess.Version = v
			return e.notify(ctx, userID, fmt.Sprintf(textGreeting, format.Escape(username)), keyboards.Location())

		case errors.Is(err, userservice.ErrUserExists):
			_ = e.notify(ctx, userID, fmt.Sprintf(textGreetingKnown, format.Escape(username)), keyboards.Remove())
			sess.SetState(states.MainMenu)
			return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())

		default:
			sess.SetState(stable(prev))
			return e.notify(ctx, userID, textRetryLater, nil)
		}
	})
}

// OnStop handles /stop: says goodbye and forgets the conversation.
func (e *Engine) OnStop(ctx context.Context, userID int64) error {
	_ = e.notify(ctx, userID, textFarewell, keyboards.Remove())
	return e.sessions.Clear(ctx, userID)
}

// OnSkip handles /skip; it is meaningful only while in a loop state.
func (e *Engine) OnSkip(ctx context.Context, userID int64) error {
	return e.sessions.Do(ctx, userID, func(sess *session.Session) error {
		if err := e.requireSession(userID, sess); err != nil {
			return err
		}
		switch sess.State {
		case states.AwaitingMoreCities:
			return e.skipCities(ctx, userID, sess)
		case states.AwaitingMoreLinks:
			return e.skipLinks(ctx, userID, sess)
		default:
			return nil
		}
	})
}

// OnText handles a plain text message.
func (e *Engine) OnText(ctx context.Context, userID int64, text string) error {
	return e.sessions.Do(ctx, userID, func(sess *session.Session) error {
		if err := e.requireSession(userID, sess); err != nil {
			return err
		}
		switch sess.State {
		case states.AwaitingFirstCity:
			return e.addCityInput(ctx, userID, sess, text)
		case states.AwaitingMoreCities:
			if text == keyboards.SkipCitiesLabel {
				return e.skipCities(ctx, userID, sess)
			}
			return e.addCityInput(ctx, userID, sess, text)
		case states.AwaitingFirstLink:
			return e.addLinkInput(ctx, userID, sess, text)
		case states.AwaitingMoreLinks:
			if text == keyboards.SkipLinksLabel {
				return e.skipLinks(ctx, userID, sess)
			}
			return e.addLinkInput(ctx, userID, sess, text)
		case states.EnterNewCity:
			return e.addCityInput(ctx, userID, sess, text)
		case states.EnterNewLink:
			return e.addLinkInput(ctx, userID, sess, text)
		default:
			// Stray text in a menu or transient state changes nothing.
			logger.TG.Debug("text ignored in current state",
				slog.String("event", "engine.text.ignored"),
				slog.Int64("user_id", userID),
				slog.String("state", string(sess.State)),
			)
			return nil
		}
	})
}

// OnLocation handles a shared location; only the very first city may be set
// this way.
func (e *Engine) OnLocation(ctx context.Context, userID int64, lat, lon float64) error {
	return e.sessions.Do(ctx, userID, func(sess *session.Session) error {
		if err := e.requireSession(userID, sess); err != nil {
			return err
		}
		if sess.State != states.AwaitingFirstCity {
			return nil
		}
		return e.addCityByCoordinates(ctx, userID, sess, lat, lon)
	})
}

// OnCallback handles a button press tagged with its unique and optional
// payload.
func (e *Engine) OnCallback(ctx context.Context, userID int64, unique, payload string) error {
	return e.sessions.Do(ctx, userID, func(sess *session.Session) error {
		if err := e.requireSession(userID, sess); err != nil {
			return err
		}
		switch sess.State {
		case states.CityIsFuzzy:
			return e.fuzzyCallback(ctx, userID, sess, unique)
		case states.MainMenu:
			return e.mainMenuCallback(ctx, userID, sess, unique)
		case states.ChangeData:
			return e.changeDataCallback(ctx, userID, sess, unique)
		case states.EnterNewCity, states.EnterNewLink:
			if unique == keyboards.ActCancel {
				sess.SetState(states.ChangeData)
				return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())
			}
			return nil
		case states.RemoveCity:
			return e.removeCityCallback(ctx, userID, sess, unique, payload)
		case states.RemoveLink:
			return e.removeLinkCallback(ctx, userID, sess, unique, payload)
		case states.Help:
			return e.helpCallback(ctx, userID, sess, unique)
		case states.HelpDeadEnd:
			if unique == keyboards.ActBack {
				sess.SetState(states.Help)
				return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.Help())
			}
			return nil
		case states.UserInfo:
			return e.userInfoCallback(ctx, userID, sess, unique)
		case states.UserInfoDeadEnd:
			if unique == keyboards.ActBack {
				sess.SetState(states.UserInfo)
				return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.UserInfo())
			}
			return nil
		case states.ConcertsShown:
			return e.concertsCallback(ctx, userID, sess, unique)
		case states.ManagingNotifications:
			return e.noticesCallback(ctx, userID, sess, unique)
		default:
			logger.TG.Debug("callback ignored in current state",
				slog.String("event", "engine.callback.ignored"),
				slog.Int64("user_id", userID),
				slog.String("state", string(sess.State)),
				slog.String("unique", unique),
			)
			return nil
		}
	})
}

// requireSession drops any update from a user with no stored record: only
// /start may create one. The sentinel tells the manager to finish without
// persisting anything.
func (e *Engine) requireSession(userID int64, sess *session.Session) error {
	if sess.Version != 0 {
		return nil
	}
	logger.TG.Debug("update from unregistered user dropped",
		slog.String("event", "engine.unregistered"),
		slog.Int64("user_id", userID),
	)
	return session.ErrSkipped
}

// notify delivers a message whose outcome must not decide the transition:
// the handler has already chosen the state to land in, and a rejected send
// is not a reason to abandon it mid-flight. Failures are logged and
// swallowed.
func (e *Engine) notify(ctx context.Context, userID int64, text string, markup *tele.ReplyMarkup) error {
	if err := e.out.Notify(ctx, userID, text, markup); err != nil {
		logger.TG.Warn("message delivery failed",
			slog.String("event", "engine.notify.failed"),
			slog.Int64("user_id", userID),
			slog.String("cause", err.Error()),
		)
	}
	return nil
}

// toWaiting checkpoints the transient state before a backend or cache call
// so a concurrent action from another process observes a defined state.
func (e *Engine) toWaiting(ctx context.Context, userID int64, sess *session.Session) error {
	sess.SetState(states.Waiting)
	return e.sessions.Checkpoint(ctx, userID, sess)
}

// stable maps a state to the nearest stable one a failed handler may leave
// the user in. Transient and unknown states fall back to the main menu.
func stable(st states.State) states.State {
	if st == states.Waiting || !states.Known(st) {
		return states.MainMenu
	}
	return st
}
