package userservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(code statusCode) string {
	b, _ := json.Marshal(defaultResponse{Status: responseStatus{Code: code, IsSuccess: code == codeSuccess}})
	return string(b)
}

func TestCreateUserCodes(t *testing.T) {
	cases := []struct {
		code statusCode
		want error
	}{
		{codeSuccess, nil},
		{codeUserAlreadyExists, ErrUserExists},
		{codeInternalError, ErrUnavailable},
		{codeNoConnection, ErrUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/users/42", r.URL.Path)
			_, _ = w.Write([]byte(envelope(tc.code)))
		}))
		c := NewClient(srv.URL, srv.Client())
		err := c.CreateUser(context.Background(), 42)
		if tc.want == nil {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, tc.want)
		}
		srv.Close()
	}
}

func TestAddCityFuzzyVariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42/cities", r.URL.Path)
		assert.Equal(t, "Moskva", r.URL.Query().Get("city"))
		variant := "Москва"
		b, _ := json.Marshal(addCityResponse{
			Status: responseStatus{Code: codeFuzzyCity},
			City:   &variant,
		})
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	err := c.AddCity(context.Background(), 42, "Moskva")

	var fuzzy *FuzzyCityError
	require.ErrorAs(t, err, &fuzzy)
	assert.Equal(t, "Moskva", fuzzy.Input)
	assert.Equal(t, "Москва", fuzzy.Variant)
}

func TestAddCityDomainErrors(t *testing.T) {
	cases := []struct {
		code statusCode
		want error
	}{
		{codeCityAlreadyAdded, ErrCityExists},
		{codeInvalidCity, ErrCityInvalid},
		{codeUserNotFound, ErrUserNotFound},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(envelope(tc.code)))
		}))
		c := NewClient(srv.URL, srv.Client())
		assert.ErrorIs(t, c.AddCity(context.Background(), 42, "Омск"), tc.want)
		srv.Close()
	}
}

func TestAddCityByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42/cities/coordinates", r.URL.Path)
		assert.Equal(t, "55.75", r.URL.Query().Get("lat"))
		assert.Equal(t, "37.62", r.URL.Query().Get("lon"))
		resolved := "Москва"
		b, _ := json.Marshal(addCityResponse{
			Status: responseStatus{Code: codeSuccess, IsSuccess: true},
			City:   &resolved,
		})
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	city, err := c.AddCityByCoordinates(context.Background(), 42, 55.75, 37.62)
	require.NoError(t, err)
	assert.Equal(t, "Москва", city)
}

func TestListConcertsDecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42/concerts", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": {"code": 0, "message": "ok", "is_success": true},
			"concerts": [{
				"title": "Big Show",
				"afisha_url": "https://afisha.example/1",
				"city": "Москва",
				"place": "Стадион",
				"address": "ул. Примерная, 1",
				"datetime": "2026-09-01T19:00:00Z",
				"map_url": "https://yandex.ru/maps/?ll=37.62,55.75",
				"images": [],
				"min_price": {"price": 1500, "currency": "RUB"},
				"artists": [{"name": "Группа", "yandex_music_id": 7}]
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	concerts, err := c.ListConcerts(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, concerts, 1)

	got := concerts[0]
	assert.Equal(t, "Big Show", got.Title)
	require.NotNil(t, got.City)
	assert.Equal(t, "Москва", *got.City)
	require.NotNil(t, got.MinPrice)
	assert.Equal(t, "RUB", got.MinPrice.Currency)
	require.Len(t, got.Artists, 1)
	assert.Equal(t, "Группа", got.Artists[0].Name)
}

func TestTrackListOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/42/tracks-lists", r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			_, _ = w.Write([]byte(envelope(codeTrackListExists)))
		case http.MethodDelete:
			_, _ = w.Write([]byte(envelope(codeTrackListNotAdded)))
		case http.MethodGet:
			b, _ := json.Marshal(trackListsResponse{
				Status:     responseStatus{Code: codeSuccess, IsSuccess: true},
				TrackLists: []string{"https://music.example/playlist/1"},
			})
			_, _ = w.Write(b)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	ctx := context.Background()

	assert.ErrorIs(t, c.AddTrackList(ctx, 42, "https://music.example/playlist/1"), ErrTrackListExists)
	assert.ErrorIs(t, c.RemoveTrackList(ctx, 42, "https://music.example/playlist/1"), ErrTrackListNotAdded)

	lists, err := c.ListTrackLists(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://music.example/playlist/1"}, lists)
}

func TestUnreachableBackendIsUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", &http.Client{})
	assert.ErrorIs(t, c.CreateUser(context.Background(), 42), ErrUnavailable)
}

func TestGarbageBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.ListCities(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUnavailable)
}
