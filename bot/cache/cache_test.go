package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu    sync.Mutex
	items map[string]string

	getErr error
}

func newMemKV() *memKV {
	return &memKV{items: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
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

func TestFetchMissThenHit(t *testing.T) {
	kv := newMemKV()
	c := New(kv)
	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"Москва", "Омск"}, nil
	}

	got, err := Fetch(context.Background(), c, 42, KindCities, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"Москва", "Омск"}, got)
	assert.Equal(t, 1, calls)

	got, err = Fetch(context.Background(), c, 42, KindCities, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"Москва", "Омск"}, got)
	assert.Equal(t, 1, calls, "second read is served from cache")
}

func TestFetchUndecodableValueIsMiss(t *testing.T) {
	kv := newMemKV()
	kv.items["cache:cities:42"] = "{not json"
	c := New(kv)

	calls := 0
	got, err := Fetch(context.Background(), c, 42, KindCities, func(context.Context) ([]string, error) {
		calls++
		return []string{"Омск"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Омск"}, got)
	assert.Equal(t, 1, calls)
	assert.JSONEq(t, `["Омск"]`, kv.items["cache:cities:42"], "bad entry is overwritten")
}

func TestFetchStoreErrorFallsThrough(t *testing.T) {
	kv := newMemKV()
	kv.getErr = assert.AnError
	c := New(kv)

	got, err := Fetch(context.Background(), c, 42, KindCities, func(context.Context) ([]string, error) {
		return []string{"Омск"}, nil
	})
	require.NoError(t, err, "a broken cache never breaks the read")
	assert.Equal(t, []string{"Омск"}, got)
}

func TestFetchBackendErrorPropagates(t *testing.T) {
	c := New(newMemKV())
	_, err := Fetch(context.Background(), c, 42, KindConcerts, func(context.Context) ([]string, error) {
		return nil, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestInvalidateCityMutationDropsConcerts(t *testing.T) {
	kv := newMemKV()
	c := New(kv)

	_, err := Fetch(context.Background(), c, 42, KindConcerts, func(context.Context) ([]string, error) {
		return []string{"concert"}, nil
	})
	require.NoError(t, err)
	_, err = Fetch(context.Background(), c, 42, KindTrackLists, func(context.Context) ([]string, error) {
		return []string{"list"}, nil
	})
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(context.Background(), 42, CityMutation...))

	calls := 0
	_, err = Fetch(context.Background(), c, 42, KindConcerts, func(context.Context) ([]string, error) {
		calls++
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "concerts entry is gone after a city mutation")

	_, ok := kv.items["cache:track_lists:42"]
	assert.True(t, ok, "track lists survive a city mutation")
}

func TestInvalidateIsPerUser(t *testing.T) {
	kv := newMemKV()
	c := New(kv)

	for _, id := range []int64{1, 2} {
		_, err := Fetch(context.Background(), c, id, KindCities, func(context.Context) ([]string, error) {
			return []string{"Омск"}, nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, c.Invalidate(context.Background(), 1, CityMutation...))

	_, ok := kv.items["cache:cities:1"]
	assert.False(t, ok)
	_, ok = kv.items["cache:cities:2"]
	assert.True(t, ok)
}

func TestKindTTL(t *testing.T) {
	assert.Equal(t, 120*time.Second, KindCities.TTL())
	assert.Equal(t, 120*time.Second, KindTrackLists.TTL())
	assert.Equal(t, 300*time.Second, KindConcerts.TTL())
}
