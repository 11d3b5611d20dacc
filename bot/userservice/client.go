package userservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/concert-mate/bot/core/logger"
	"log/slog"
)

const maxResponseBytes = 1 << 20

// Client talks to the user service over its REST API. All endpoints hang
// off /users/{telegram_id}; responses carry a status envelope whose code is
// mapped onto the package's domain errors.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL, e.g.
// "http://user-service:8080". A nil httpClient falls back to a default with
// a conservative overall timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func (c *Client) usersURL(userID int64) string {
	return fmt.Sprintf("%s/users/%d", c.baseURL, userID)
}

// call performs one request and decodes the status envelope into out.
// Transport errors and unreadable bodies both collapse into ErrUnavailable:
// the caller cannot distinguish them and should not try.
func (c *Client) call(ctx context.Context, method, rawURL string, query url.Values, out any) error {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return fmt.Errorf("user service: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.SVC.Warn("user service request failed",
			slog.String("event", "userservice.request"),
			slog.String("method", method),
			slog.String("url", rawURL),
			slog.String("cause", err.Error()),
		)
		return ErrUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ErrUnavailable
	}
	if err := json.Unmarshal(body, out); err != nil {
		logger.SVC.Warn("user service answered with an undecodable body",
			slog.String("event", "userservice.decode"),
			slog.String("method", method),
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return ErrUnavailable
	}

	logger.SVC.Debug("user service request",
		slog.String("event", "userservice.request"),
		slog.String("method", method),
		slog.String("url", rawURL),
		slog.Int("http_status", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// codeError maps a non-success response code to its domain error. Codes the
// operation cannot legally produce still map to something sensible rather
// than panicking on a contract drift.
func codeError(code statusCode) error {
	switch code {
	case codeSuccess:
		return nil
	case codeUserAlreadyExists:
		return ErrUserExists
	case codeUserNotFound:
		return ErrUserNotFound
	case codeCityAlreadyAdded:
		return ErrCityExists
	case codeCityNotAdded:
		return ErrCityNotAdded
	case codeInvalidCity:
		return ErrCityInvalid
	case codeTrackListExists:
		return ErrTrackListExists
	case codeTrackListNotAdded:
		return ErrTrackListNotAdded
	case codeInvalidTrackList:
		return ErrTrackListInvalid
	default:
		// codeInternalError, codeNoConnection, anything unknown.
		return ErrUnavailable
	}
}

func (c *Client) CreateUser(ctx context.Context, userID int64) error {
	var out defaultResponse
	if err := c.call(ctx, http.MethodPost, c.usersURL(userID), nil, &out); err != nil {
		return err
	}
	return codeError(out.Status.Code)
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	var out defaultResponse
	if err := c.call(ctx, http.MethodDelete, c.usersURL(userID), nil, &out); err != nil {
		return err
	}
	return codeError(out.Status.Code)
}

func (c *Client) AddCity(ctx context.Context, userID int64, city string) error {
	var out addCityResponse
	q := url.Values{"city": {city}}
	if err := c.call(ctx, http.MethodPost, c.usersURL(userID)+"/cities", q, &out); err != nil {
		return err
	}
	if out.Status.Code == codeFuzzyCity && out.City != nil {
		return &FuzzyCityError{Input: city, Variant: *out.City}
	}
	return codeError(out.Status.Code)
}

func (c *Client) AddCityByCoordinates(ctx context.Context, userID int64, lat, lon float64) (string, error) {
	var out addCityResponse
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	if err := c.call(ctx, http.MethodPost, c.usersURL(userID)+"/cities/coordinates", q, &out); err != nil {
		return "", err
	}
	if err := codeError(out.Status.Code); err != nil {
		return "", err
	}
	if out.City == nil {
		return "", ErrUnavailable
	}
	return *out.City, nil
}

func (c *Client) RemoveCity(ctx context.Context, userID int64, city string) error {
	var out defaultResponse
	q := url.Values{"city": {city}}
	if err := c.call(ctx, http.MethodDelete, c.usersURL(userID)+"/cities", q, &out); err != nil {
		return err
	}
	return codeError(out.Status.Code)
}

func (c *Client) ListCities(ctx context.Context, userID int64) ([]string, error) {
	var out citiesResponse
	if err := c.call(ctx, http.MethodGet, c.usersURL(userID)+"/cities", nil, &out); err != nil {
		return nil, err
	}
	if err := codeError(out.Status.Code); err != nil {
		return nil, err
	}
	return out.Cities, nil
}

func (c *Client) AddTrackList(ctx context.Context, userID int64, trackListURL string) error {
	var out defaultResponse
	q := url.Values{"url": {trackListURL}}
	if err := c.call(ctx, http.MethodPost, c.usersURL(userID)+"/tracks-lists", q, &out); err != nil {
		return err
	}
	return codeError(out.Status.Code)
}

func (c *Client) RemoveTrackList(ctx context.Context, userID int64, trackListURL string) error {
	var out defaultResponse
	q := url.Values{"url": {trackListURL}}
	if err := c.call(ctx, http.MethodDelete, c.usersURL(userID)+"/tracks-lists", q, &out); err != nil {
		return err
	}
	return codeError(out.Status.Code)
}

func (c *Client) ListTrackLists(ctx context.Context, userID int64) ([]string, error) {
	var out trackListsResponse
	if err := c.call(ctx, http.MethodGet, c.usersURL(userID)+"/tracks-lists", nil, &out); err != nil {
		return nil, err
	}
	if err := codeError(out.Status.Code); err != nil {
		return nil, err
	}
	return out.TrackLists, nil
}

func (c *Client) ListConcerts(ctx context.Context, userID int64) ([]Concert, error) {
	var out concertsResponse
	if err := c.call(ctx, http.MethodGet, c.usersURL(userID)+"/concerts", nil, &out); err != nil {
		return nil, err
	}
	if err := codeError(out.Status.Code); err != nil {
		return nil, err
	}
	return out.Concerts, nil
}

var _ Agent = (*Client)(nil)
