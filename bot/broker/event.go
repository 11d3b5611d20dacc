// Package broker consumes concert notification events from NATS and hands
// decoded events to the reconciler. Delivery is at-least-once; duplicates
// are for the consumer to suppress.
package broker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/concert-mate/bot/bot/userservice"
)

var errEmptyEvent = errors.New("broker: event carries no concerts")

// EventUser identifies the notification target.
type EventUser struct {
	TelegramID int64 `json:"telegram_id"`
}

// Event is one tracker detection: a user and the new concerts matching
// their selection.
type Event struct {
	User     EventUser             `json:"user"`
	Concerts []userservice.Concert `json:"concerts"`
}

// DecodeEvent parses and validates a raw broker payload. A payload without
// a target or without concerts is malformed, not merely empty.
func DecodeEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("broker: decode event: %w", err)
	}
	if ev.User.TelegramID == 0 {
		return nil, errors.New("broker: event carries no target user")
	}
	if len(ev.Concerts) == 0 {
		return nil, errEmptyEvent
	}
	return &ev, nil
}
