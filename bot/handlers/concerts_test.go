package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concert-mate/bot/bot/keyboards"
	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/bot/userservice"
)

func someConcerts(n int) []userservice.Concert {
	out := make([]userservice.Concert, n)
	when := time.Date(2025, time.September, 2, 19, 5, 0, 0, time.UTC)
	for i := range out {
		out[i] = userservice.Concert{
			Title:     fmt.Sprintf("Концерт %d", i+1),
			AfishaURL: fmt.Sprintf("https://afisha.example/%d", i+1),
			Datetime:  &when,
			Artists:   []userservice.Artist{{Name: fmt.Sprintf("Группа %d", i+1)}},
		}
	}
	return out
}

func TestShowConcertsOpensFirstPage(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seedMainMenu(t, rig)
	rig.agent.concerts = someConcerts(12)

	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActShowConcerts, ""))

	sess := rig.store.current(testUser)
	require.Equal(t, states.ConcertsShown, sess.State)
	require.NotNil(t, sess.Data.Concerts)
	assert.Len(t, sess.Data.Concerts.Items, 12)
	assert.Equal(t, 0, sess.Data.Concerts.Page)

	last := rig.sender.edits[len(rig.sender.edits)-1]
	assert.Contains(t, last.Text, "Концерт 1")
	assert.Contains(t, last.Text, fmt.Sprintf(textConcertsPage, 1, 3))
	assert.NotContains(t, last.Text, "Концерт 6")
}

func TestConcertsPaginationWrapsAround(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seedMainMenu(t, rig)
	rig.agent.concerts = someConcerts(12)
	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActShowConcerts, ""))

	page := func() int { return rig.store.current(testUser).Data.Concerts.Page }

	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActNextPage, ""))
	assert.Equal(t, 1, page())
	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActNextPage, ""))
	assert.Equal(t, 2, page())
	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActNextPage, ""))
	assert.Equal(t, 0, page(), "next past the last page wraps to the first")

	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActPrevPage, ""))
	assert.Equal(t, 2, page(), "prev below the first page wraps to the last")

	last := rig.sender.edits[len(rig.sender.edits)-1]
	assert.Contains(t, last.Text, "Концерт 11")
	assert.Contains(t, last.Text, fmt.Sprintf(textConcertsPage, 3, 3))
}

func TestConcertsBackDropsView(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seedMainMenu(t, rig)
	rig.agent.concerts = someConcerts(3)
	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActShowConcerts, ""))

	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActBack, ""))
	sess := rig.store.current(testUser)
	assert.Equal(t, states.MainMenu, sess.State)
	assert.Nil(t, sess.Data.Concerts, "the view does not outlive the screen")
}

func TestShowConcertsEmptySelection(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seedMainMenu(t, rig)

	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActShowConcerts, ""))
	sess := rig.store.current(testUser)
	assert.Equal(t, states.MainMenu, sess.State)
	assert.Nil(t, sess.Data.Concerts)
	assert.Contains(t, rig.sender.noticeTexts(), textNoConcerts)
}

func TestShowConcertsBackendDown(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seedMainMenu(t, rig)
	rig.agent.listErr = userservice.ErrUnavailable

	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActShowConcerts, ""))
	assert.Equal(t, states.MainMenu, rig.store.current(testUser).State)
	assert.Contains(t, rig.sender.noticeTexts(), textRetryLater)
}

func TestSwapKeyboardRetractsPrevious(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seedMainMenu(t, rig)
	oldID := rig.store.current(testUser).Data.LastKeyboardID
	require.NotZero(t, oldID)

	// A fresh /start on a known user tears the old keyboard down and
	// records the replacement.
	rig.agent.createUserErr = userservice.ErrUserExists
	require.NoError(t, rig.engine.OnStart(ctx, testUser, "ivan"))

	assert.Contains(t, rig.sender.deletes, oldID)
	newID := rig.store.current(testUser).Data.LastKeyboardID
	assert.NotEqual(t, oldID, newID)
	assert.Equal(t, rig.sender.sent[len(rig.sender.sent)-1].ID, newID)
}

func TestEditFailureFallsBackToSwap(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	seedMainMenu(t, rig)
	oldID := rig.store.current(testUser).Data.LastKeyboardID

	rig.sender.editErr = fmt.Errorf("message to edit not found")
	require.NoError(t, rig.engine.OnCallback(ctx, testUser, keyboards.ActHelp, ""))

	assert.Equal(t, states.Help, rig.store.current(testUser).State)
	assert.Contains(t, rig.sender.deletes, oldID)
	assert.NotEqual(t, oldID, rig.store.current(testUser).Data.LastKeyboardID)
}
