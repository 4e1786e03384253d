package services

import (
	"context"
	"errors"

	"wayfarer/internal/domain"
)

// POIQuery is what the gateway asks of each provider.
type POIQuery struct {
	Destination  string
	Interests    []string
	RadiusMeters int
	Limit        int
}

type POIProvider interface {
	Name() string
	Search(ctx context.Context, q POIQuery) ([]domain.POI, error)
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// permanent marks an error that retrying cannot fix.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
