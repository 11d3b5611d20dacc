package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concert-mate/bot/bot/states"
)

func TestNewStartsRegistration(t *testing.T) {
	sess := New()
	assert.Equal(t, states.AwaitingFirstCity, sess.State)
	assert.True(t, sess.Data.NoticesEnabled)
	require.NotNil(t, sess.Data.Registration)
	assert.True(t, sess.Data.Registration.FirstCity)
	assert.True(t, sess.Data.Registration.FirstLink)
}

func TestSetStatePrunesForeignPayloads(t *testing.T) {
	sess := New()
	sess.Data.Fuzzy = &FuzzyData{Input: "Moskva", Variant: "Moscow"}
	sess.Data.Concerts = &ConcertView{Items: []string{"a"}}

	sess.SetState(states.MainMenu)

	assert.Nil(t, sess.Data.Registration)
	assert.Nil(t, sess.Data.Fuzzy)
	assert.Nil(t, sess.Data.Concerts)
}

func TestSetStateKeepsOwnedPayloads(t *testing.T) {
	sess := New()
	sess.SetState(states.AwaitingFirstLink)
	require.NotNil(t, sess.Data.Registration, "registration payload survives within the group")

	sess.Data.Fuzzy = &FuzzyData{Input: "Moskva", Variant: "Moscow", ReturnTo: states.AwaitingFirstCity}
	sess.SetState(states.CityIsFuzzy)
	assert.NotNil(t, sess.Data.Fuzzy)

	sess.SetState(states.ConcertsShown)
	assert.Nil(t, sess.Data.Fuzzy)
}

func TestSetStateWaitingKeepsEverything(t *testing.T) {
	sess := New()
	sess.Data.Fuzzy = &FuzzyData{Input: "Moskva"}
	sess.Data.Concerts = &ConcertView{Items: []string{"a"}}

	sess.SetState(states.Waiting)

	assert.NotNil(t, sess.Data.Registration)
	assert.NotNil(t, sess.Data.Fuzzy)
	assert.NotNil(t, sess.Data.Concerts)
}

func TestKeyboardRecordOverwrite(t *testing.T) {
	sess := New()
	_, ok := sess.LastKeyboard()
	assert.False(t, ok)

	sess.RecordKeyboard(101)
	id, ok := sess.LastKeyboard()
	require.True(t, ok)
	assert.Equal(t, 101, id)

	sess.RecordKeyboard(202)
	id, _ = sess.LastKeyboard()
	assert.Equal(t, 202, id, "newer keyboard replaces the old identifier")
}

func items(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

func TestConcertViewPageCount(t *testing.T) {
	cases := []struct {
		n, pages int
	}{
		{0, 1},
		{1, 1},
		{5, 1},
		{6, 2},
		{10, 2},
		{12, 3},
	}
	for _, tc := range cases {
		v := &ConcertView{Items: items(tc.n)}
		assert.Equalf(t, tc.pages, v.PageCount(), "%d items", tc.n)
	}
}

func TestConcertViewWrapAround(t *testing.T) {
	v := &ConcertView{Items: items(12)} // 3 pages: 5, 5, 2

	assert.Len(t, v.Window(), 5)

	v.Next()
	assert.Equal(t, 1, v.Page)
	v.Next()
	assert.Equal(t, 2, v.Page)
	assert.Len(t, v.Window(), 2)

	v.Next()
	assert.Equal(t, 0, v.Page, "forward wraps past the last page")

	v.Prev()
	assert.Equal(t, 2, v.Page, "backward wraps below page zero")
}

func TestConcertViewSinglePageStaysPut(t *testing.T) {
	v := &ConcertView{Items: items(3)}
	v.Next()
	assert.Equal(t, 0, v.Page)
	v.Prev()
	assert.Equal(t, 0, v.Page)
}
