package userservice

import "context"

// Agent is the full surface the conversation layer needs from the user
// service. Every method returns either nil (success) or one of the package's
// domain errors; AddCity may additionally return *FuzzyCityError.
type Agent interface {
	CreateUser(ctx context.Context, userID int64) error
	DeleteUser(ctx context.Context, userID int64) error

	AddCity(ctx context.Context, userID int64, city string) error
	// AddCityByCoordinates resolves the nearest known city for a shared
	// location, adds it, and returns the resolved name.
	AddCityByCoordinates(ctx context.Context, userID int64, lat, lon float64) (string, error)
	RemoveCity(ctx context.Context, userID int64, city string) error
	ListCities(ctx context.Context, userID int64) ([]string, error)

	AddTrackList(ctx context.Context, userID int64, url string) error
	RemoveTrackList(ctx context.Context, userID int64, url string) error
	ListTrackLists(ctx context.Context, userID int64) ([]string, error)

	ListConcerts(ctx context.Context, userID int64) ([]Concert, error)
}
