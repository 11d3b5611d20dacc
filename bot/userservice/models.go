package userservice

import "time"

// Artist is one performer of a concert.
type Artist struct {
	Name          string `json:"name"`
	YandexMusicID int64  `json:"yandex_music_id"`
}

// Price is the cheapest ticket offer known for a concert.
type Price struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// Concert is one upcoming event matched against a user's cities and track
// lists. Optional fields are pointers so "unknown" and "empty" stay
// distinguishable in the rendered announcement.
type Concert struct {
	Title     string     `json:"title"`
	AfishaURL string     `json:"afisha_url"`
	City      *string    `json:"city"`
	Place     *string    `json:"place"`
	Address   *string    `json:"address"`
	Datetime  *time.Time `json:"datetime"`
	MapURL    *string    `json:"map_url"`
	Images    []string   `json:"images"`
	MinPrice  *Price     `json:"min_price"`
	Artists   []Artist   `json:"artists"`
}

// Backend response codes. The numbering is fixed by the service contract.
type statusCode int

const (
	codeSuccess           statusCode = 0
	codeInternalError     statusCode = 1
	codeUserAlreadyExists statusCode = 2
	codeUserNotFound      statusCode = 3
	codeCityAlreadyAdded  statusCode = 4
	codeCityNotAdded      statusCode = 5
	codeInvalidCity       statusCode = 6
	codeFuzzyCity         statusCode = 7
	codeTrackListExists   statusCode = 8
	codeTrackListNotAdded statusCode = 9
	codeInvalidTrackList  statusCode = 10
	codeNoConnection      statusCode = 11
)

type responseStatus struct {
	Code      statusCode `json:"code"`
	Message   string     `json:"message"`
	IsSuccess bool       `json:"is_success"`
}

type defaultResponse struct {
	Status responseStatus `json:"status"`
}

type addCityResponse struct {
	Status responseStatus `json:"status"`
	// City carries the fuzzy correction when the code is codeFuzzyCity and
	// the resolved name on a coordinates lookup.
	City *string `json:"city"`
}

type citiesResponse struct {
	Status responseStatus `json:"status"`
	Cities []string       `json:"cities"`
}

type trackListsResponse struct {
	Status     responseStatus `json:"status"`
	TrackLists []string       `json:"track_lists"`
}

type concertsResponse struct {
	Status   responseStatus `json:"status"`
	Concerts []Concert      `json:"concerts"`
}
