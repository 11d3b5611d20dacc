package session

import (
	"context"
	"errors"
	"sync"

	"github.com/concert-mate/bot/core/logger"
	"log/slog"
)

// Manager serializes every access to one user's session. Both the
// conversation engine and the notification reconciler route their mutations
// through Do, so an in-flight handler and a concurrently delivered
// notification can never interleave field-level read-modify-writes for the
// same user. Distinct users run fully in parallel.
//
// Inside one process the per-user mutex is the serialization point; across
// processes the store's version compare-and-set catches the residual race,
// and Do restarts the closure once against fresh state.
type Manager struct {
	store Store

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// ErrSkipped is returned by a Do closure to decline the update entirely:
// Do finishes without persisting the session and reports nil to the caller.
// Handlers use it to drop input from a user who has no stored record, so a
// stray message never materializes a session.
var ErrSkipped = errors.New("session: update skipped")

// NewManager builds a manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		locks: make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) userLock(userID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

// Do runs fn with exclusive ownership of the user's session. A nil stored
// record is surfaced to fn as nil; fn may replace it by returning a session
// through the out pointer semantics of mutating *Session obtained from Get.
//
// The closure receives the session loaded under the lock, and the final
// state of the session is persisted with compare-and-set when fn returns
// nil. If the CAS loses (another process wrote in between), the closure is
// restarted exactly once against the fresh record, as if the action had
// just arrived.
func (m *Manager) Do(ctx context.Context, userID int64, fn func(sess *Session) error) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	for attempt := 0; ; attempt++ {
		sess, err := m.store.Get(ctx, userID)
		if err != nil {
			return err
		}
		if sess == nil {
			sess = New()
			sess.Version = 0
		}

		if err := fn(sess); err != nil {
			if errors.Is(err, ErrSkipped) {
				return nil
			}
			// A conflict surfaced by fn (e.g. a mid-handler checkpoint that
			// lost its compare-and-set) restarts the closure the same way a
			// final-save conflict does.
			if errors.Is(err, ErrConflict) && attempt == 0 {
				continue
			}
			return err
		}

		err = m.store.Put(ctx, userID, sess)
		if errors.Is(err, ErrConflict) && attempt == 0 {
			logger.DB.Warn("session conflict, restarting handler",
				slog.String("event", "session.conflict"),
				slog.Int64("user_id", userID),
			)
			continue
		}
		return err
	}
}

// Checkpoint persists the session mid-handler, e.g. to expose the Waiting
// state before a backend call. The caller must already hold the user's lock
// by being inside Do.
func (m *Manager) Checkpoint(ctx context.Context, userID int64, sess *Session) error {
	return m.store.Put(ctx, userID, sess)
}

// Peek reads the session without mutating anything. The read still takes
// the user lock so it cannot observe a half-applied transition.
func (m *Manager) Peek(ctx context.Context, userID int64) (*Session, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return m.store.Get(ctx, userID)
}

// SetField patches one session data field under the user lock.
func (m *Manager) SetField(ctx context.Context, userID int64, key string, value any) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return m.store.SetField(ctx, userID, key, value)
}

// Clear removes the user's record entirely.
func (m *Manager) Clear(ctx context.Context, userID int64) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return m.store.Clear(ctx, userID)
}
