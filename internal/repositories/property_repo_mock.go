package repositories

import (
	"fmt"
	"sync"
	"time"

	"azlistings/internal/models"
)

// MockPropertyRepository is an in-memory implementation of PropertyRepository,
// useful for tests and local development without touching the filesystem.
// It mirrors the file repository's seeding behavior: a never-saved store
// serves the default catalog.
type MockPropertyRepository struct {
	properties []models.Property
	seeded     bool
	mu         sync.Mutex
}

// NewMockPropertyRepository creates a new instance of MockPropertyRepository.
func NewMockPropertyRepository() *MockPropertyRepository {
	return &MockPropertyRepository{}
}

// ListAll returns all listings, seeding the defaults on first use.
func (r *MockPropertyRepository) ListAll() ([]models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.seeded {
		r.properties = DefaultProperties(time.Now())
		r.seeded = true
	}
	return copyProperties(r.properties), nil
}

// GetByID returns a listing by its ID.
func (r *MockPropertyRepository) GetByID(id string) (*models.Property, error) {
	properties, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	for i := range properties {
		if properties[i].ID == id {
			return &properties[i], nil
		}
	}
	return nil, fmt.Errorf("property with ID %s: %w", id, ErrNotFound)
}

// SaveAll replaces the whole collection.
func (r *MockPropertyRepository) SaveAll(properties []models.Property) error {
	seen := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate property ID %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties = copyProperties(properties)
	r.seeded = true
	return nil
}
