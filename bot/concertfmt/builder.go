// Package concertfmt renders concert announcements as HTML-mode Telegram
// messages and extracts location pins from Yandex map links.
package concertfmt

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/concert-mate/bot/bot/userservice"
	"github.com/concert-mate/bot/core/telegram/format"
)

var months = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// Datetime renders "2 сентября в 19:05", optionally underlined.
func Datetime(t time.Time, underlined bool) string {
	text := fmt.Sprintf("%d %s в %02d:%02d", t.Day(), months[t.Month()-1], t.Hour(), t.Minute())
	if underlined {
		return "<u>" + text + "</u>"
	}
	return text
}

// Announcement renders the notification message for one concert.
func Announcement(c userservice.Concert) string {
	var b strings.Builder

	b.WriteString("Скоро состоится " + format.Link(c.AfishaURL, "концерт") + "!!!\n\n")

	// The title line is redundant when the concert is named after its only
	// performer.
	if len(c.Artists) != 1 || c.Artists[0].Name != c.Title {
		b.WriteString("Название: " + format.Italic(c.Title) + "\n\n")
	}

	if len(c.Artists) == 1 {
		b.WriteString("Исполнитель:")
	} else {
		b.WriteString("Исполнители:")
	}
	names := make([]string, len(c.Artists))
	for i, a := range c.Artists {
		names[i] = format.Escape(a.Name)
	}
	b.WriteString(" " + strings.Join(names, ", "))

	b.WriteString("\n\nМесто: город " + format.Bold(deref(c.City)) +
		", адрес " + format.Bold(deref(c.Address)) + "\n")
	if c.Place != nil {
		b.WriteString("в " + format.Italic(*c.Place) + "\n\n")
	} else {
		b.WriteString("\n")
	}

	if c.Datetime != nil {
		b.WriteString("Время: " + Datetime(*c.Datetime, true) + "\n\n")
	}
	if c.MinPrice != nil {
		b.WriteString(fmt.Sprintf("Минимальная цена билета: <b>%v</b> <b>%s</b>",
			c.MinPrice.Price, format.Escape(c.MinPrice.Currency)))
	}

	return b.String()
}

// Summary renders the compact per-concert entry of the paginated list.
func Summary(c userservice.Concert) string {
	var b strings.Builder

	b.WriteString(format.Link(c.AfishaURL, c.Title))
	if c.Datetime != nil {
		b.WriteString("\n" + Datetime(*c.Datetime, false))
	}
	if c.City != nil {
		b.WriteString("\nгород " + format.Bold(*c.City))
		if c.Place != nil {
			b.WriteString(", " + format.Italic(*c.Place))
		}
	}
	if c.MinPrice != nil {
		b.WriteString(fmt.Sprintf("\nбилеты от <b>%v</b> %s",
			c.MinPrice.Price, format.Escape(c.MinPrice.Currency)))
	}

	return b.String()
}

// Summaries renders every concert of a selection in list order.
func Summaries(concerts []userservice.Concert) []string {
	out := make([]string, len(concerts))
	for i, c := range concerts {
		out[i] = Summary(c)
	}
	return out
}

// MapCoords extracts (lon, lat) from the "ll" query parameter of a Yandex
// map link, in the parameter's own component order.
func MapCoords(mapURL string) (lon, lat float64, err error) {
	parsed, err := url.Parse(mapURL)
	if err != nil {
		return 0, 0, fmt.Errorf("map url: %w", err)
	}
	ll := parsed.Query().Get("ll")
	if ll == "" {
		return 0, 0, fmt.Errorf("map url %q has no ll parameter", mapURL)
	}
	parts := strings.Split(ll, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("map url %q has a malformed ll parameter", mapURL)
	}
	lon, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("map url %q: bad longitude: %w", mapURL, err)
	}
	lat, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("map url %q: bad latitude: %w", mapURL, err)
	}
	return lon, lat, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
