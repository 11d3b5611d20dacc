package handlers

import (
	"context"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/bot/cache"
	"github.com/concert-mate/bot/bot/session"
	"github.com/concert-mate/bot/bot/userservice"
)

// fakeStore is an in-memory session store with real compare-and-set.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[int64]session.Session
	versions map[int64]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[int64]session.Session),
		versions: make(map[int64]int64),
	}
}

func (s *fakeStore) Get(_ context.Context, userID int64) (*session.Session, error) {
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

func (s *fakeStore) Put(_ context.Context, userID int64, sess *session.Session) error {
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

func (s *fakeStore) SetField(context.Context, int64, string, any) error { return nil }
func (s *fakeStore) DeleteField(context.Context, int64, string) error   { return nil }

func (s *fakeStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	delete(s.versions, userID)
	return nil
}

func (s *fakeStore) exists(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

func (s *fakeStore) current(userID int64) session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// fakeAgent scripts backend answers and records every mutating call.
type fakeAgent struct {
	mu sync.Mutex

	createUserErr error
	addCityErrs   []error // consumed front to back; nil once exhausted
	addLinkErr    error
	removeErr     error

	cities     []string
	trackLists []string
	concerts   []userservice.Concert
	listErr    error

	addedCities  []string
	addedLinks   []string
	removedItems []string
}

func (a *fakeAgent) nextAddCityErr() error {
	if len(a.addCityErrs) == 0 {
		return nil
	}
	err := a.addCityErrs[0]
	a.addCityErrs = a.addCityErrs[1:]
	return err
}

func (a *fakeAgent) CreateUser(context.Context, int64) error { return a.createUserErr }
func (a *fakeAgent) DeleteUser(context.Context, int64) error { return nil }

func (a *fakeAgent) AddCity(_ context.Context, _ int64, city string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.nextAddCityErr(); err != nil {
		return err
	}
	a.addedCities = append(a.addedCities, city)
	return nil
}

func (a *fakeAgent) AddCityByCoordinates(_ context.Context, _ int64, _, _ float64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.nextAddCityErr(); err != nil {
		return "", err
	}
	a.addedCities = append(a.addedCities, "resolved")
	return "Москва", nil
}

func (a *fakeAgent) RemoveCity(_ context.Context, _ int64, city string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.removeErr != nil {
		return a.removeErr
	}
	a.removedItems = append(a.removedItems, city)
	return nil
}

func (a *fakeAgent) ListCities(context.Context, int64) ([]string, error) {
	return a.cities, a.listErr
}

func (a *fakeAgent) AddTrackList(_ context.Context, _ int64, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.addLinkErr != nil {
		return a.addLinkErr
	}
	a.addedLinks = append(a.addedLinks, url)
	return nil
}

func (a *fakeAgent) RemoveTrackList(_ context.Context, _ int64, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.removeErr != nil {
		return a.removeErr
	}
	a.removedItems = append(a.removedItems, url)
	return nil
}

func (a *fakeAgent) ListTrackLists(context.Context, int64) ([]string, error) {
	return a.trackLists, a.listErr
}

func (a *fakeAgent) ListConcerts(context.Context, int64) ([]userservice.Concert, error) {
	return a.concerts, a.listErr
}

type sentMessage struct {
	ID     int
	Text   string
	Markup *tele.ReplyMarkup
}

// fakeSender records every outbound effect and hands out message ids.
type fakeSender struct {
	mu     sync.Mutex
	nextID int

	sent     []sentMessage
	notices  []sentMessage
	edits    []sentMessage
	deletes  []int
	pins     int
	sendErr  error
	editErr  error
	blockErr error // returned by every send when set
}

func (f *fakeSender) Send(_ context.Context, _ int64, text string, markup *tele.ReplyMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockErr != nil {
		return 0, f.blockErr
	}
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ID: f.nextID, Text: text, Markup: markup})
	return f.nextID, nil
}

func (f *fakeSender) Notify(_ context.Context, _ int64, text string, markup *tele.ReplyMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockErr != nil {
		return f.blockErr
	}
	f.notices = append(f.notices, sentMessage{Text: text, Markup: markup})
	return nil
}

func (f *fakeSender) Edit(_ context.Context, _ int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockErr != nil {
		return f.blockErr
	}
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, sentMessage{ID: messageID, Text: text, Markup: markup})
	return nil
}

func (f *fakeSender) Delete(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeSender) SendLocation(context.Context, int64, float64, float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockErr != nil {
		return f.blockErr
	}
	f.pins++
	return nil
}

func (f *fakeSender) noticeTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notices))
	for i, n := range f.notices {
		out[i] = n.Text
	}
	return out
}

// memKV is the in-memory KV behind the cache in tests.
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

type testRig struct {
	engine *Engine
	store  *fakeStore
	agent  *fakeAgent
	sender *fakeSender
	kv     *memKV
}

func newTestRig() *testRig {
	store := newFakeStore()
	agent := &fakeAgent{}
	snd := &fakeSender{}
	kv := newMemKV()
	mgr := session.NewManager(store)
	return &testRig{
		engine: NewEngine(mgr, agent, cache.New(kv), snd),
		store:  store,
		agent:  agent,
		sender: snd,
		kv:     kv,
	}
}
