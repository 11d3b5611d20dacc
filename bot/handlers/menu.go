package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/concert-mate/bot/bot/cache"
	"github.com/concert-mate/bot/bot/keyboards"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/bot/userservice"
	"github.com/concert-mate/bot/core/telegram/format"
)

func (e *Engine) mainMenuCallback(ctx context.Context, userID int64, sess *session.Session, unique string) error {
	switch unique {
	case keyboards.ActChangeData:
		sess.SetState(states.ChangeData)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())

	case keyboards.ActShowConcerts:
		return e.showConcerts(ctx, userID, sess)

	case keyboards.ActUserInfo:
		sess.SetState(states.UserInfo)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.UserInfo())

	case keyboards.ActNotices:
		sess.SetState(states.ManagingNotifications)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.Notices(sess.Data.NoticesEnabled))

	case keyboards.ActHelp:
		sess.SetState(states.Help)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.Help())

	default:
		return nil
	}
}

func (e *Engine) changeDataCallback(ctx context.Context, userID int64, sess *session.Session, unique string) error {
	switch unique {
	case keyboards.ActBack:
		sess.SetState(states.MainMenu)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())

	case keyboards.ActAddCity:
		sess.SetState(states.EnterNewCity)
		return e.editKeyboard(ctx, userID, sess, textEnterCity, keyboards.Cancel())

	case keyboards.ActAddLink:
		sess.SetState(states.EnterNewLink)
		return e.editKeyboard(ctx, userID, sess, textEnterLink, keyboards.Cancel())

	case keyboards.ActRemoveCity:
		return e.showRemovePicker(ctx, userID, sess, states.RemoveCity,
			cache.KindCities, e.agent.ListCities, textNoCities, textPickCityToRemove)

	case keyboards.ActRemoveLink:
		return e.showRemovePicker(ctx, userID, sess, states.RemoveLink,
			cache.KindTrackLists, e.agent.ListTrackLists, textNoLinks, textPickLinkToRemove)

	default:
		return nil
	}
}

// showRemovePicker fetches the user's collection and shows it as a picker,
// one button per item.
func (e *Engine) showRemovePicker(
	ctx context.Context, userID int64, sess *session.Session, dest states.State,
	kind cache.Kind, list func(context.Context, int64) ([]string, error),
	emptyText, pickText string,
) error {
	if err := e.toWaiting(ctx, userID, sess); err != nil {
		return err
	}

	items, err := cache.Fetch(ctx, e.cache, userID, kind, func(ctx context.Context) ([]string, error) {
		return list(ctx, userID)
	})
	if err != nil {
		sess.SetState(states.ChangeData)
		_ = e.notify(ctx, userID, textRetryLater, nil)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())
	}

	sess.SetState(dest)
	if len(items) == 0 {
		return e.editKeyboard(ctx, userID, sess, emptyText, keyboards.Back())
	}
	return e.editKeyboard(ctx, userID, sess, pickText, keyboards.Picker(items))
}

func (e *Engine) removeCityCallback(ctx context.Context, userID int64, sess *session.Session, unique, payload string) error {
	switch unique {
	case keyboards.ActBack:
		sess.SetState(states.ChangeData)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())

	case keyboards.ActPick:
		if err := e.toWaiting(ctx, userID, sess); err != nil {
			return err
		}
		err := e.agent.RemoveCity(ctx, userID, payload)
		switch {
		case err == nil:
			_ = e.cache.Invalidate(ctx, userID, cache.CityMutation...)
			_ = e.notify(ctx, userID, fmt.Sprintf(textCityRemoved, format.Escape(payload)), nil)
		case errors.Is(err, userservice.ErrCityNotAdded):
			_ = e.notify(ctx, userID, textCityInvalid, nil)
		default:
			_ = e.notify(ctx, userID, textRetryLater, nil)
		}
		sess.SetState(states.ChangeData)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())

	default:
		return nil
	}
}

func (e *Engine) removeLinkCallback(ctx context.Context, userID int64, sess *session.Session, unique, payload string) error {
	switch unique {
	case keyboards.ActBack:
		sess.SetState(states.ChangeData)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())

	case keyboards.ActPick:
		if err := e.toWaiting(ctx, userID, sess); err != nil {
			return err
		}
		err := e.agent.RemoveTrackList(ctx, userID, payload)
		switch {
		case err == nil:
			_ = e.cache.Invalidate(ctx, userID, cache.TrackListMutation...)
			_ = e.notify(ctx, userID, textLinkRemoved, nil)
		case errors.Is(err, userservice.ErrTrackListNotAdded):
			_ = e.notify(ctx, userID, textLinkInvalid, nil)
		default:
			_ = e.notify(ctx, userID, textRetryLater, nil)
		}
		sess.SetState(states.ChangeData)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.ChangeData())

	default:
		return nil
	}
}

func (e *Engine) helpCallback(ctx context.Context, userID int64, sess *session.Session, unique string) error {
	switch unique {
	case keyboards.ActBack:
		sess.SetState(states.MainMenu)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())

	case keyboards.ActMainInfo:
		sess.SetState(states.HelpDeadEnd)
		return e.editKeyboard(ctx, userID, sess, textAboutBot, keyboards.Back())

	case keyboards.ActDevContact:
		sess.SetState(states.HelpDeadEnd)
		return e.editKeyboard(ctx, userID, sess, textDevContact, keyboards.Back())

	default:
		return nil
	}
}

func (e *Engine) userInfoCallback(ctx context.Context, userID int64, sess *session.Session, unique string) error {
	switch unique {
	case keyboards.ActBack:
		sess.SetState(states.MainMenu)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())

	case keyboards.ActCities:
		return e.showUserCollection(ctx, userID, sess, cache.KindCities, e.agent.ListCities, textYourCities)

	case keyboards.ActLinks:
		return e.showUserCollection(ctx, userID, sess, cache.KindTrackLists, e.agent.ListTrackLists, textYourLinks)

	default:
		return nil
	}
}

func (e *Engine) showUserCollection(
	ctx context.Context, userID int64, sess *session.Session,
	kind cache.Kind, list func(context.Context, int64) ([]string, error), header string,
) error {
	if err := e.toWaiting(ctx, userID, sess); err != nil {
		return err
	}

	items, err := cache.Fetch(ctx, e.cache, userID, kind, func(ctx context.Context) ([]string, error) {
		return list(ctx, userID)
	})
	if err != nil {
		sess.SetState(states.UserInfo)
		_ = e.notify(ctx, userID, textRetryLater, nil)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.UserInfo())
	}

	var b strings.Builder
	b.WriteString(header)
	for _, item := range items {
		b.WriteString("\n" + format.Escape(item))
	}

	sess.SetState(states.UserInfoDeadEnd)
	return e.editKeyboard(ctx, userID, sess, b.String(), keyboards.Back())
}

func (e *Engine) noticesCallback(ctx context.Context, userID int64, sess *session.Session, unique string) error {
	switch unique {
	case keyboards.ActBack:
		sess.SetState(states.MainMenu)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())

	case keyboards.ActEnable:
		sess.Data.NoticesEnabled = true
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.Notices(true))

	case keyboards.ActDisable:
		sess.Data.NoticesEnabled = false
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.Notices(false))

	default:
		return nil
	}
}
