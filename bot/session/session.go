// Package session owns the per-user conversation record: the current state,
// the state-scoped payloads, and the bookkeeping both the conversation
// engine and the notification reconciler mutate. Payloads are typed per
// state group instead of a loose key/value bag so a handler cannot read a
// field that some other state established.
package session

import (
	"github.com/concert-mate/bot/bot/states"
)

// ConcertsPerPage is the fixed page size of the concerts view.
const ConcertsPerPage = 5

// RegistrationData travels with the registration group only.
type RegistrationData struct {
	// FirstCity is set until the user's very first city is committed; it
	// selects the follow-up prompt after a fuzzy Apply.
	FirstCity bool `json:"is_first_city"`
	FirstLink bool `json:"is_first_link"`
}

// FuzzyData lives only while the user decides on a suggested city
// correction. ReturnTo remembers the state that triggered the fuzzy check.
type FuzzyData struct {
	Input     string       `json:"input"`
	Variant   string       `json:"variant"`
	ReturnTo  states.State `json:"return_to"`
	FirstCity bool         `json:"is_first_city"`
}

// ConcertView lives only while the paginated concerts list is on screen.
type ConcertView struct {
	Items []string `json:"items"`
	Page  int      `json:"page"`
}

// PageCount returns ceil(len(items)/ConcertsPerPage), at least 1.
func (v *ConcertView) PageCount() int {
	if v == nil || len(v.Items) == 0 {
		return 1
	}
	return (len(v.Items) + ConcertsPerPage - 1) / ConcertsPerPage
}

// Window returns the items of the current page.
func (v *ConcertView) Window() []string {
	if v == nil || len(v.Items) == 0 {
		return nil
	}
	start := v.Page * ConcertsPerPage
	if start >= len(v.Items) {
		return nil
	}
	end := start + ConcertsPerPage
	if end > len(v.Items) {
		end = len(v.Items)
	}
	return v.Items[start:end]
}

// Next advances one page, wrapping past the last page back to the first.
func (v *ConcertView) Next() {
	v.Page = (v.Page + 1) % v.PageCount()
}

// Prev steps one page back, wrapping below page zero to the last page.
func (v *ConcertView) Prev() {
	v.Page = (v.Page - 1 + v.PageCount()) % v.PageCount()
}

// Data is the state-scoped portion of a session. The pointer members form a
// union keyed by the state: SetState prunes every member the target state
// has no claim on.
type Data struct {
	LastKeyboardID int  `json:"last_keyboard_id,omitempty"`
	NoticesEnabled bool `json:"notices_enabled,omitempty"`

	Registration *RegistrationData `json:"registration,omitempty"`
	Fuzzy        *FuzzyData        `json:"fuzzy,omitempty"`
	Concerts     *ConcertView      `json:"concerts,omitempty"`
}

// Session is one user's conversation record.
type Session struct {
	State states.State `json:"state"`
	Data  Data         `json:"data"`

	// Version backs the store's compare-and-set; zero means "not persisted".
	Version int64 `json:"-"`
}

// New returns a registration-start session with notifications enabled.
func New() *Session {
	return &Session{
		State: states.AwaitingFirstCity,
		Data: Data{
			NoticesEnabled: true,
			Registration:   &RegistrationData{FirstCity: true, FirstLink: true},
		},
	}
}

// SetState transitions the session and drops every payload the new state is
// not entitled to. Waiting is transient and keeps everything: the in-flight
// handler still owns the payloads it started with.
func (s *Session) SetState(st states.State) {
	s.State = st
	if st == states.Waiting {
		return
	}
	if !states.Registration(st) {
		s.Data.Registration = nil
	}
	if st != states.CityIsFuzzy {
		s.Data.Fuzzy = nil
	}
	if st != states.ConcertsShown {
		s.Data.Concerts = nil
	}
}

// RecordKeyboard overwrites the identifier of the most recently shown
// interactive message.
func (s *Session) RecordKeyboard(messageID int) {
	s.Data.LastKeyboardID = messageID
}

// LastKeyboard returns the identifier of the previously shown interactive
// message without clearing it; the next RecordKeyboard overwrites it.
func (s *Session) LastKeyboard() (int, bool) {
	if s.Data.LastKeyboardID == 0 {
		return 0, false
	}
	return s.Data.LastKeyboardID, true
}
