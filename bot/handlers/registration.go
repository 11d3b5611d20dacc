package handlers

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/concert-mate/bot/bot/cache"
	"github.com/concert-mate/bot/bot/keyboards"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/bot/userservice"
	"github.com/concert-mate/bot/core/telegram/format"
)

// addCityInput processes a typed city name from any city-entry state.
func (e *Engine) addCityInput(ctx context.Context, userID int64, sess *session.Session, city string) error {
	if utf8.RuneCountInString(city) > maxCityLen {
		return e.notify(ctx, userID, textCityTooLong, nil)
	}

	origin := sess.State
	if err := e.toWaiting(ctx, userID, sess); err != nil {
		return err
	}

	err := e.agent.AddCity(ctx, userID, city)

	var fuzzy *userservice.FuzzyCityError
	switch {
	case err == nil:
		_ = e.cache.Invalidate(ctx, userID, cache.CityMutation...)
		_ = e.notify(ctx, userID, fmt.Sprintf(textCityAdded, format.Escape(city)), nil)
		return e.afterCityCommitted(ctx, userID, sess, origin)

	case errors.As(err, &fuzzy):
		sess.SetState(states.CityIsFuzzy)
		sess.Data.Fuzzy = &session.FuzzyData{
			Input:     city,
			Variant:   fuzzy.Variant,
			ReturnTo:  origin,
			FirstCity: origin == states.AwaitingFirstCity,
		}
		_ = e.notify(ctx, userID,
			fmt.Sprintf(textFuzzyQuestion, format.Escape(city), format.Escape(fuzzy.Variant)),
			keyboards.Remove())
		return e.swapKeyboard(ctx, userID, sess, textFuzzyChoose, keyboards.FuzzyVariants())

	case errors.Is(err, userservice.ErrCityInvalid):
		sess.SetState(origin)
		return e.notify(ctx, userID, textCityInvalid, nil)

	case errors.Is(err, userservice.ErrCityExists):
		sess.SetState(origin)
		return e.notify(ctx, userID, textCityExists, nil)

	default:
		return e.backendFailed(ctx, userID, sess, origin)
	}
}

// addCityByCoordinates sets the very first city from a shared location.
func (e *Engine) addCityByCoordinates(ctx context.Context, userID int64, sess *session.Session, lat, lon float64) error {
	origin := sess.State
	if err := e.toWaiting(ctx, userID, sess); err != nil {
		return err
	}

	city, err := e.agent.AddCityByCoordinates(ctx, userID, lat, lon)
	switch {
	case err == nil:
		_ = e.cache.Invalidate(ctx, userID, cache.CityMutation...)
		_ = e.notify(ctx, userID, fmt.Sprintf(textCityAdded, format.Escape(city)), nil)
		return e.afterCityCommitted(ctx, userID, sess, origin)

	case errors.Is(err, userservice.ErrCityExists):
		sess.SetState(origin)
		return e.notify(ctx, userID, textCityExists, nil)

	default:
		return e.backendFailed(ctx, userID, sess, origin)
	}
}

// afterCityCommitted routes to the state that follows a successful city add
// from the given origin.
func (e *Engine) afterCityCommitted(ctx context.Context, userID int64, sess *session.Session, origin states.State) error {
	switch origin {
	case states.AwaitingFirstCity:
		sess.SetState(states.AwaitingMoreCities)
		if sess.Data.Registration != nil {
			sess.Data.Registration.FirstCity = false
		}
		return e.notify(ctx, userID, textAfterFirstCity, keyboards.SkipCities())

	case states.AwaitingMoreCities:
		sess.SetState(origin)
		return nil

	default: // states.EnterNewCity
		sess.SetState(states.ChangeData)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())
	}
}

// addLinkInput processes a typed track list link.
func (e *Engine) addLinkInput(ctx context.Context, userID int64, sess *session.Session, link string) error {
	if utf8.RuneCountInString(link) > maxLinkLen {
		return e.notify(ctx, userID, textLinkTooLong, nil)
	}

	origin := sess.State
	if err := e.toWaiting(ctx, userID, sess); err != nil {
		return err
	}

	err := e.agent.AddTrackList(ctx, userID, link)
	switch {
	case err == nil:
		_ = e.cache.Invalidate(ctx, userID, cache.TrackListMutation...)
		_ = e.notify(ctx, userID, textLinkAdded, nil)
		return e.afterLinkCommitted(ctx, userID, sess, origin)

	case errors.Is(err, userservice.ErrTrackListInvalid):
		sess.SetState(origin)
		return e.notify(ctx, userID, textLinkInvalid, nil)

	case errors.Is(err, userservice.ErrTrackListExists):
		sess.SetState(origin)
		return e.notify(ctx, userID, textLinkExists, nil)

	default:
		return e.backendFailed(ctx, userID, sess, origin)
	}
}

func (e *Engine) afterLinkCommitted(ctx context.Context, userID int64, sess *session.Session, origin states.State) error {
	switch origin {
	case states.AwaitingFirstLink:
		sess.SetState(states.AwaitingMoreLinks)
		if sess.Data.Registration != nil {
			sess.Data.Registration.FirstLink = false
		}
		return e.notify(ctx, userID, textAfterFirstLink, keyboards.SkipLinks())

	case states.AwaitingMoreLinks:
		sess.SetState(origin)
		return nil

	default: // states.EnterNewLink
		sess.SetState(states.ChangeData)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())
	}
}

// skipCities ends city input and moves on to track lists.
func (e *Engine) skipCities(ctx context.Context, userID int64, sess *session.Session) error {
	sess.SetState(states.AwaitingFirstLink)
	return e.notify(ctx, userID, textEnterFirstLink, keyboards.Remove())
}

// skipLinks ends track list input and finishes registration.
func (e *Engine) skipLinks(ctx context.Context, userID int64, sess *session.Session) error {
	_ = e.notify(ctx, userID, textRegistrationDone, keyboards.Remove())
	sess.SetState(states.MainMenu)
	return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())
}

// fuzzyCallback resolves the apply/deny confirmation of a suggested city.
func (e *Engine) fuzzyCallback(ctx context.Context, userID int64, sess *session.Session, unique string) error {
	fz := sess.Data.Fuzzy
	if fz == nil {
		// Nothing to resolve; land somewhere sane.
		sess.SetState(states.MainMenu)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())
	}

	switch unique {
	case keyboards.ActApply:
		return e.applyFuzzy(ctx, userID, sess, fz)
	case keyboards.ActDeny:
		return e.denyFuzzy(ctx, userID, sess, fz)
	default:
		return nil
	}
}

func (e *Engine) applyFuzzy(ctx context.Context, userID int64, sess *session.Session, fz *session.FuzzyData) error {
	if err := e.toWaiting(ctx, userID, sess); err != nil {
		return err
	}

	err := e.agent.AddCity(ctx, userID, fz.Variant)
	switch {
	case err == nil:
		_ = e.cache.Invalidate(ctx, userID, cache.CityMutation...)
		_ = e.notify(ctx, userID, textFuzzyApplied, nil)

	case errors.Is(err, userservice.ErrCityExists):
		_ = e.notify(ctx, userID, textCityExists, nil)

	default:
		// Stay on the confirmation; the user may retry the same button.
		sess.SetState(states.CityIsFuzzy)
		return e.notify(ctx, userID, textRetryLater, nil)
	}

	return e.afterFuzzyResolved(ctx, userID, sess, fz, true)
}

func (e *Engine) denyFuzzy(ctx context.Context, userID int64, sess *session.Session, fz *session.FuzzyData) error {
	_ = e.notify(ctx, userID, textFuzzyDenied, nil)
	return e.afterFuzzyResolved(ctx, userID, sess, fz, false)
}

// afterFuzzyResolved returns to the remembered predecessor. A committed
// first city advances registration; a denied one repeats the first-city
// prompt.
func (e *Engine) afterFuzzyResolved(ctx context.Context, userID int64, sess *session.Session, fz *session.FuzzyData, committed bool) error {
	if fz.ReturnTo == states.EnterNewCity {
		sess.SetState(states.ChangeData)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())
	}

	if fz.FirstCity && committed {
		sess.SetState(states.AwaitingMoreCities)
		if sess.Data.Registration != nil {
			sess.Data.Registration.FirstCity = false
		}
		return e.notify(ctx, userID, textAfterFirstCity, keyboards.SkipCities())
	}
	if fz.FirstCity {
		sess.SetState(states.AwaitingFirstCity)
		return e.notify(ctx, userID, textChooseAction, keyboards.Location())
	}

	sess.SetState(states.AwaitingMoreCities)
	return e.notify(ctx, userID, textChooseAction, keyboards.SkipCities())
}

// backendFailed lands the user on the nearest stable state with a
// retry-later notice.
func (e *Engine) backendFailed(ctx context.Context, userID int64, sess *session.Session, origin states.State) error {
	if origin == states.EnterNewCity || origin == states.EnterNewLink {
		_ = e.notify(ctx, userID, textRetryLater, nil)
		sess.SetState(states.ChangeData)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())
	}
	sess.SetState(stable(origin))
	return e.notify(ctx, userID, textRetryLater, nil)
}
