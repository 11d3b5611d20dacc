package concertfmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concert-mate/bot/bot/userservice"
)

func strp(s string) *string { return &s }

func TestDatetime(t *testing.T) {
	ts := time.Date(2026, time.September, 2, 19, 5, 0, 0, time.UTC)
	assert.Equal(t, "2 сентября в 19:05", Datetime(ts, false))
	assert.Equal(t, "<u>2 сентября в 19:05</u>", Datetime(ts, true))
}

func TestAnnouncementFull(t *testing.T) {
	ts := time.Date(2026, time.September, 2, 19, 0, 0, 0, time.UTC)
	c := userservice.Concert{
		Title:     "Big Show",
		AfishaURL: "https://afisha.example/1",
		City:      strp("Москва"),
		Place:     strp("Стадион"),
		Address:   strp("ул. Примерная, 1"),
		Datetime:  &ts,
		MinPrice:  &userservice.Price{Price: 1500, Currency: "RUB"},
		Artists: []userservice.Artist{
			{Name: "Первый"},
			{Name: "Второй"},
		},
	}

	got := Announcement(c)
	assert.Contains(t, got, `<a href="https://afisha.example/1">концерт</a>`)
	assert.Contains(t, got, "Название: <i>Big Show</i>")
	assert.Contains(t, got, "Исполнители: Первый, Второй")
	assert.Contains(t, got, "город <b>Москва</b>")
	assert.Contains(t, got, "в <i>Стадион</i>")
	assert.Contains(t, got, "<u>2 сентября в 19:00</u>")
	assert.Contains(t, got, "Минимальная цена билета: <b>1500</b> <b>RUB</b>")
}

func TestAnnouncementSingleArtistNamedAfterConcert(t *testing.T) {
	c := userservice.Concert{
		Title:     "Группа",
		AfishaURL: "https://afisha.example/2",
		City:      strp("Омск"),
		Address:   strp("пр. Мира, 5"),
		Artists:   []userservice.Artist{{Name: "Группа"}},
	}

	got := Announcement(c)
	assert.NotContains(t, got, "Название:", "title line is dropped when it repeats the artist")
	assert.Contains(t, got, "Исполнитель: Группа")
}

func TestAnnouncementEscapesUserVisibleText(t *testing.T) {
	c := userservice.Concert{
		Title:     "Rock & <Roll>",
		AfishaURL: "https://afisha.example/3",
		City:      strp("Омск"),
		Address:   strp("пр. Мира, 5"),
		Artists:   []userservice.Artist{{Name: "A&B"}},
	}

	got := Announcement(c)
	assert.Contains(t, got, "Rock &amp; &lt;Roll&gt;")
	assert.Contains(t, got, "A&amp;B")
}

func TestSummaries(t *testing.T) {
	out := Summaries([]userservice.Concert{
		{Title: "One", AfishaURL: "https://afisha.example/1"},
		{Title: "Two", AfishaURL: "https://afisha.example/2"},
	})
	require.Len(t, out, 2)
	assert.Contains(t, out[0], ">One</a>")
	assert.Contains(t, out[1], ">Two</a>")
}

func TestMapCoords(t *testing.T) {
	lon, lat, err := MapCoords("https://yandex.ru/maps/?ll=37.62,55.75&z=12")
	require.NoError(t, err)
	assert.InDelta(t, 37.62, lon, 1e-9)
	assert.InDelta(t, 55.75, lat, 1e-9)
}

func TestMapCoordsErrors(t *testing.T) {
	cases := []string{
		"https://yandex.ru/maps/?z=12",
		"https://yandex.ru/maps/?ll=37.62",
		"https://yandex.ru/maps/?ll=a,b",
		"://not-a-url",
	}
	for _, raw := range cases {
		_, _, err := MapCoords(raw)
		assert.Errorf(t, err, "input %q", raw)
	}
}
