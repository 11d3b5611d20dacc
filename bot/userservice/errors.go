// Package userservice is the client for the concert-mate user service: the
// backend that owns user registrations, their cities and track lists, and
// the concert selection computed from them.
package userservice

import (
	"errors"
	"fmt"
)

// Domain errors of the user service, one per response code the backend can
// answer with. Transport failures and unknown codes collapse into
// ErrUnavailable: the conversation layer treats "backend broken" and
// "backend unreachable" identically.
var (
	ErrUnavailable       = errors.New("user service unavailable")
	ErrUserExists        = errors.New("user already registered")
	ErrUserNotFound      = errors.New("user not registered")
	ErrCityInvalid       = errors.New("city not recognized")
	ErrCityExists        = errors.New("city already added")
	ErrCityNotAdded      = errors.New("city not in user's list")
	ErrTrackListInvalid  = errors.New("track list link not recognized")
	ErrTrackListExists   = errors.New("track list already added")
	ErrTrackListNotAdded = errors.New("track list not in user's list")
)

// FuzzyCityError reports that the submitted city name is not valid as-is
// but a close correction exists. The conversation layer turns this into the
// apply-or-deny confirmation step instead of a failure notice.
type FuzzyCityError struct {
	Input   string
	Variant string
}

func (e *FuzzyCityError) Error() string {
	return fmt.Sprintf("ambiguous city %q, suggested %q", e.Input, e.Variant)
}
