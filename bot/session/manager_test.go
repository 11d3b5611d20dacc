package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concert-mate/bot/bot/states"
)

// memStore is an in-memory Store with real compare-and-set semantics.
type memStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	versions map[int64]int64

	// conflictOnce makes the next Put fail with ErrConflict exactly once,
	// simulating a concurrent writer in another process.
	conflictOnce bool
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[int64]Session),
		versions: make(map[int64]int64),
	}
}

func (s *memStore) Get(_ context.Context, userID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	cp := stored
	cp.Version = s.versions[userID]
	return &cp, nil
}

func (s *memStore) Put(_ context.Context, userID int64, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictOnce {
		s.conflictOnce = false
		return ErrConflict
	}
	if sess.Version != s.versions[userID] {
		return ErrConflict
	}
	s.sessions[userID] = *sess
	s.versions[userID]++
	sess.Version = s.versions[userID]
	return nil
}

func (s *memStore) SetField(_ context.Context, _ int64, _ string, _ any) error { return nil }
func (s *memStore) DeleteField(_ context.Context, _ int64, _ string) error     { return nil }

func (s *memStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	delete(s.versions, userID)
	return nil
}

func TestManagerDoCreatesFreshSession(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	err := mgr.Do(context.Background(), 7, func(sess *Session) error {
		assert.Equal(t, states.AwaitingFirstCity, sess.State)
		sess.SetState(states.MainMenu)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, states.MainMenu, got.State)
}

func TestManagerDoRestartsOnConflict(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	require.NoError(t, mgr.Do(context.Background(), 7, func(sess *Session) error {
		sess.SetState(states.MainMenu)
		return nil
	}))

	store.conflictOnce = true
	runs := 0
	err := mgr.Do(context.Background(), 7, func(sess *Session) error {
		runs++
		assert.Equal(t, states.MainMenu, sess.State, "restart sees fresh state, not leftovers")
		sess.SetState(states.Help)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, runs, "closure reruns exactly once after a lost compare-and-set")

	got, _ := store.Get(context.Background(), 7)
	assert.Equal(t, states.Help, got.State)
}

func TestManagerDoGivesUpOnSecondConflict(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	require.NoError(t, mgr.Do(context.Background(), 7, func(sess *Session) error { return nil }))

	err := mgr.Do(context.Background(), 7, func(sess *Session) error {
		sess.Version = 99 // stale on every attempt
		return nil
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestManagerDoPropagatesHandlerError(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	wantErr := assert.AnError
	err := mgr.Do(context.Background(), 7, func(sess *Session) error {
		sess.SetState(states.Help)
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	got, _ := store.Get(context.Background(), 7)
	assert.Nil(t, got, "failed closure leaves nothing behind")
}

func TestManagerDoSkippedPersistsNothing(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	err := mgr.Do(context.Background(), 7, func(sess *Session) error {
		sess.SetState(states.MainMenu)
		return ErrSkipped
	})
	require.NoError(t, err, "a declined update is not an error")

	got, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, got, "declining leaves no record behind")
}

func TestManagerSerializesPerUser(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	const workers = 8
	const rounds = 20
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_ = mgr.Do(context.Background(), 1, func(sess *Session) error {
					sess.Data.LastKeyboardID++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, workers*rounds, got.Data.LastKeyboardID)
}

func TestManagerCheckpointPersistsMidHandler(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)

	err := mgr.Do(context.Background(), 7, func(sess *Session) error {
		sess.SetState(states.Waiting)
		require.NoError(t, mgr.Checkpoint(context.Background(), 7, sess))

		mid, err := store.Get(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, states.Waiting, mid.State)

		sess.SetState(states.MainMenu)
		return nil
	})
	require.NoError(t, err)

	got, _ := store.Get(context.Background(), 7)
	assert.Equal(t, states.MainMenu, got.State)
}
