package format

import (
	"fmt"
	"html"
)

// Escape escapes text for inclusion in an HTML-mode Telegram message.
func Escape(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in a bold entity.
func Bold(text string) string {
	return "<b>" + Escape(text) + "</b>"
}

// Italic wraps escaped text in an italic entity.
func Italic(text string) string {
	return "<i>" + Escape(text) + "</i>"
}

// Underline wraps escaped text in an underline entity.
func Underline(text string) string {
	return "<u>" + Escape(text) + "</u>"
}

// Link renders an inline link with escaped label and href.
func Link(href, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, Escape(href), Escape(label))
}
