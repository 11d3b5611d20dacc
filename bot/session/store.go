package session

import (
	"context"
	"errors"
)

// ErrConflict reports that a Put lost a compare-and-set race: the stored
// record changed under the caller since it was read.
var ErrConflict = errors.New("session: version conflict")

// Store is the durable mapping from user identity to conversation record.
// Get and Put are atomic per user record; SetField/DeleteField patch one
// data key without a full read-modify-write. A store outage surfaces as an
// error from every method; callers fail closed.
type Store interface {
	// Get returns the stored session or (nil, nil) when the user is unknown.
	Get(ctx context.Context, userID int64) (*Session, error)

	// Put writes the full record, compare-and-set on sess.Version. A zero
	// version inserts; on success the session's version is advanced.
	Put(ctx context.Context, userID int64, sess *Session) error

	// SetField patches a single data field in place.
	SetField(ctx context.Context, userID int64, key string, value any) error

	// DeleteField removes a single data field in place.
	DeleteField(ctx context.Context, userID int64, key string) error

	// Clear removes the record entirely.
	Clear(ctx context.Context, userID int64) error
}
