package repositories

import (
	"errors"

	"azlistings/internal/models"
)

// ErrNotFound is returned when a lookup matches no listing. Absence is an
// expected outcome for this dataset, so callers should branch on it with
// errors.Is rather than treat it as a failure.
var ErrNotFound = errors.New("property not found")

// PropertyRepository defines the interface for listing data access.
//
// The collection is small (tens of records) and read-mostly, so the surface is
// deliberately coarse: whole-collection reads and whole-collection overwrites.
// There is no row-level update primitive.
type PropertyRepository interface {
	// ListAll returns every listing. It never fails just because storage has
	// not been initialized yet: an empty store is seeded with the default
	// catalog on first read.
	ListAll() ([]models.Property, error)

	// GetByID returns the listing with the given id, or an error wrapping
	// ErrNotFound when no listing matches.
	GetByID(id string) (*models.Property, error)

	// SaveAll replaces the entire collection. Insertion order is preserved
	// across save/load round-trips. Ids must be unique.
	SaveAll(properties []models.Property) error
}
