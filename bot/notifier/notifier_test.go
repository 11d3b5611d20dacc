package notifier

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/bot/broker"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/states"
	"github.com/concert-mate/bot/bot/userservice"
)

const testUser int64 = 42

type memStore struct {
	mu       sync.Mutex
	sessions map[int64]session.Session
	versions map[int64]int64
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[int64]session.Session),
		versions: make(map[int64]int64),
	}
}

func (s *memStore) Get(_ context.Context, userID int64) (*session.Session, error) {
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

func (s *memStore) Put(_ context.Context, userID int64, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Version != s.versions[userID] {
		return session.ErrConflict
	}
	s.sessions[userID] = *sess
	s.versions[userID]++
	sess.Version = s.versions[userID]
	return nil
}

func (s *memStore) SetField(context.Context, int64, string, any) error { return nil }
func (s *memStore) DeleteField(context.Context, int64, string) error   { return nil }

func (s *memStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	delete(s.versions, userID)
	return nil
}

func (s *memStore) seed(userID int64, sess session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
	s.versions[userID] = 1
}

func (s *memStore) current(userID int64) session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

type recordingSender struct {
	mu      sync.Mutex
	nextID  int
	notices []string
	sent    []string
	deletes []int
	pins    int

	notifyErr error
}

func (f *recordingSender) Send(_ context.Context, _ int64, text string, _ *tele.ReplyMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, text)
	return f.nextID, nil
}

func (f *recordingSender) Notify(_ context.Context, _ int64, text string, _ *tele.ReplyMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notices = append(f.notices, text)
	return nil
}

func (f *recordingSender) Edit(context.Context, int64, int, string, *tele.ReplyMarkup) error {
	return nil
}

func (f *recordingSender) Delete(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *recordingSender) SendLocation(context.Context, int64, float64, float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins++
	return nil
}

func (f *recordingSender) noticeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}

type memKV struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemKV() *memKV { return &memKV{items: make(map[string]string)} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memKV) SetNX(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; ok {
		return false, nil
	}
	m.items[key] = value
	return true, nil
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *memKV) Close() error { return nil }

type rig struct {
	rec    *Reconciler
	mgr    *session.Manager
	store  *memStore
	sender *recordingSender
	kv     *memKV
	pauses *int
}

func newRig(opts Options) *rig {
	store := newMemStore()
	snd := &recordingSender{}
	kv := newMemKV()
	mgr := session.NewManager(store)
	rec := New(mgr, snd, kv, opts)
	pauses := 0
	rec.sleep = func(time.Duration) { pauses++ }
	return &rig{rec: rec, mgr: mgr, store: store, sender: snd, kv: kv, pauses: &pauses}
}

func seededSession() session.Session {
	return session.Session{
		State: states.MainMenu,
		Data:  session.Data{NoticesEnabled: true, LastKeyboardID: 7},
	}
}

func eventOf(concerts ...userservice.Concert) *broker.Event {
	return &broker.Event{User: broker.EventUser{TelegramID: testUser}, Concerts: concerts}
}

func plainConcert(title string) userservice.Concert {
	when := time.Date(2025, time.September, 2, 19, 5, 0, 0, time.UTC)
	return userservice.Concert{
		Title:     title,
		AfishaURL: "https://afisha.example/1",
		Datetime:  &when,
		Artists:   []userservice.Artist{{Name: "Группа"}},
	}
}

func TestHandleDeliversAndRestoresKeyboard(t *testing.T) {
	r := newRig(Options{})
	r.store.seed(testUser, seededSession())

	mapURL := "https://yandex.ru/maps/?ll=37.62%2C55.75&z=15"
	withMap := plainConcert("Первый")
	withMap.MapURL = &mapURL

	r.rec.Handle(context.Background(), eventOf(withMap, plainConcert("Второй")), "evt-1")

	assert.Equal(t, []int{7}, r.sender.deletes, "stale keyboard is retracted first")
	require.Len(t, r.sender.notices, 2)
	assert.Contains(t, r.sender.notices[0], "Первый")
	assert.Contains(t, r.sender.notices[1], "Второй")
	assert.Equal(t, 1, r.sender.pins, "only the concert with a parsable map gets a pin")

	sess := r.store.current(testUser)
	assert.Equal(t, states.MainMenu, sess.State)
	assert.NotEqual(t, 7, sess.Data.LastKeyboardID, "a fresh keyboard replaces the retracted one")
	require.Len(t, r.sender.sent, 1)
	assert.Equal(t, textMenu, r.sender.sent[0])
}

func TestHandleSuppressesDuplicateEvent(t *testing.T) {
	r := newRig(Options{})
	r.store.seed(testUser, seededSession())
	ev := eventOf(plainConcert("Концерт"))

	r.rec.Handle(context.Background(), ev, "evt-1")
	r.rec.Handle(context.Background(), ev, "evt-1")

	assert.Equal(t, 1, r.sender.noticeCount(), "the second identical event is a no-op")
}

func TestHandleDistinctKeysBothDeliver(t *testing.T) {
	r := newRig(Options{})
	r.store.seed(testUser, seededSession())

	r.rec.Handle(context.Background(), eventOf(plainConcert("Раз")), "evt-1")
	r.rec.Handle(context.Background(), eventOf(plainConcert("Два")), "evt-2")

	assert.Equal(t, 2, r.sender.noticeCount())
}

func TestHandleSkipsMutedUser(t *testing.T) {
	r := newRig(Options{})
	sess := seededSession()
	sess.Data.NoticesEnabled = false
	r.store.seed(testUser, sess)

	r.rec.Handle(context.Background(), eventOf(plainConcert("Концерт")), "evt-1")

	assert.Zero(t, r.sender.noticeCount())
	assert.Empty(t, r.sender.deletes)
}

func TestHandleSkipsUnknownUser(t *testing.T) {
	r := newRig(Options{})

	r.rec.Handle(context.Background(), eventOf(plainConcert("Концерт")), "evt-1")

	assert.Zero(t, r.sender.noticeCount())
	_, err := r.store.Get(context.Background(), testUser)
	require.NoError(t, err)
	assert.Zero(t, r.store.current(testUser).State, "no phantom session is created")
}

func TestHandleAbortsOnBlockedUser(t *testing.T) {
	r := newRig(Options{})
	r.store.seed(testUser, seededSession())
	r.sender.notifyErr = tele.ErrBlockedByUser

	r.rec.Handle(context.Background(), eventOf(plainConcert("Концерт")), "evt-1")

	assert.Zero(t, r.sender.noticeCount())
	assert.Equal(t, 7, r.store.current(testUser).Data.LastKeyboardID,
		"an aborted delivery leaves the stored session untouched")
}

func TestHandleTransientFailureAllowsRedelivery(t *testing.T) {
	r := newRig(Options{})
	r.store.seed(testUser, seededSession())
	ev := eventOf(plainConcert("Концерт"))

	r.sender.notifyErr = fmt.Errorf("telegram: Bad Gateway (502)")
	r.rec.Handle(context.Background(), ev, "evt-1")
	require.Zero(t, r.sender.noticeCount())

	// The broker redelivers the same event once the hiccup passes; the
	// dedup claim must not have survived the failed attempt.
	r.sender.notifyErr = nil
	r.rec.Handle(context.Background(), ev, "evt-1")
	assert.Equal(t, 1, r.sender.noticeCount())
}

func TestHandlePausesBetweenBatches(t *testing.T) {
	r := newRig(Options{BatchSize: 2, BatchPause: time.Minute})
	r.store.seed(testUser, seededSession())

	concerts := make([]userservice.Concert, 5)
	for i := range concerts {
		concerts[i] = plainConcert(fmt.Sprintf("Концерт %d", i+1))
	}
	r.rec.Handle(context.Background(), eventOf(concerts...), "evt-1")

	assert.Equal(t, 5, r.sender.noticeCount())
	assert.Equal(t, 2, *r.pauses, "a pause after every full batch")
}

// A notification arriving while the user's own action is mid-flight waits
// for that action instead of interleaving with it.
func TestHandleDefersBehindInFlightAction(t *testing.T) {
	r := newRig(Options{})
	r.store.seed(testUser, seededSession())

	entered := make(chan struct{})
	release := make(chan struct{})
	handlerDone := make(chan struct{})
	go func() {
		defer close(handlerDone)
		_ = r.mgr.Do(context.Background(), testUser, func(sess *session.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	notifyDone := make(chan struct{})
	go func() {
		defer close(notifyDone)
		r.rec.Handle(context.Background(), eventOf(plainConcert("Концерт")), "evt-1")
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.sender.noticeCount(), "nothing goes out while the action holds the lock")

	close(release)
	<-handlerDone
	select {
	case <-notifyDone:
	case <-time.After(2 * time.Second):
		t.Fatal("notification never went through after the action finished")
	}
	assert.Equal(t, 1, r.sender.noticeCount())
}
