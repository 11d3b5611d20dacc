package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/concert-mate/bot/bot/cache"
	"github.com/concert-mate/bot/bot/concertfmt"
	"github.com/concert-mate/bot/bot/keyboards"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/bot/userservice"
)

// showConcerts fetches the user's concert selection and opens the paginated
// view on its first page.
func (e *Engine) showConcerts(ctx context.Context, userID int64, sess *session.Session) error {
	if err := e.toWaiting(ctx, userID, sess); err != nil {
		return err
	}

	concerts, err := cache.Fetch(ctx, e.cache, userID, cache.KindConcerts,
		func(ctx context.Context) ([]userservice.Concert, error) {
			return e.agent.ListConcerts(ctx, userID)
		})
	if err != nil {
		sess.SetState(states.MainMenu)
		_ = e.notify(ctx, userID, textRetryLater, nil)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())
	}

	if len(concerts) == 0 {
		sess.SetState(states.MainMenu)
		_ = e.notify(ctx, userID, textNoConcerts, nil)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())
	}

	sess.SetState(states.ConcertsShown)
	sess.Data.Concerts = &session.ConcertView{Items: concertfmt.Summaries(concerts)}
	return e.editKeyboard(ctx, userID, sess, concertsPageText(sess.Data.Concerts), keyboards.ConcertsPager())
}

func (e *Engine) concertsCallback(ctx context.Context, userID int64, sess *session.Session, unique string) error {
	view := sess.Data.Concerts
	if view == nil {
		sess.SetState(states.MainMenu)
		return e.swapKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())
	}

	switch unique {
	case keyboards.ActNextPage:
		view.Next()
	case keyboards.ActPrevPage:
		view.Prev()
	case keyboards.ActBack:
		sess.SetState(states.MainMenu)
		return e.editKeyboard(ctx, userID, sess, textChooseAction, keyboards.MainMenu())
	default:
		return nil
	}

	return e.editKeyboard(ctx, userID, sess, concertsPageText(view), keyboards.ConcertsPager())
}

func concertsPageText(view *session.ConcertView) string {
	var b strings.Builder
	for i, item := range view.Window() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(item)
	}
	b.WriteString(fmt.Sprintf("\n\n"+textConcertsPage, view.Page+1, view.PageCount()))
	return b.String()
}
