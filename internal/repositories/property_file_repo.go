package repositories

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"azlistings/internal/models"
	"azlistings/pkg/fsutil"
)

// FilePropertyRepository is a flat-file implementation of PropertyRepository.
// The whole collection lives in a single pretty-printed JSON array which is
// read and rewritten in full on every access; fine for the tens of listings
// this site carries.
//
// A single mutex serializes load-and-save so concurrent admin writers going
// through the same repository instance cannot interleave partial state. Even
// reads take it, since a read against empty storage seeds and persists the
// defaults. Writers in separate processes are not coordinated.
type FilePropertyRepository struct {
	path string
	mu   sync.Mutex
}

// NewFilePropertyRepository creates a repository backed by the JSON file at
// path. The file and its parent directory are created lazily on first use.
func NewFilePropertyRepository(path string) *FilePropertyRepository {
	return &FilePropertyRepository{
		path: path,
	}
}

// ListAll returns every listing, seeding the default catalog when no backing
// file exists yet. An unparseable backing file is moved aside to
// "<path>.corrupt" for manual recovery and the defaults are re-seeded; the
// site keeps serving rather than going dark over a mangled data file.
func (r *FilePropertyRepository) ListAll() ([]models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	properties, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	return copyProperties(properties), nil
}

// GetByID scans the collection for a matching id. A linear scan is plenty at
// this record count.
func (r *FilePropertyRepository) GetByID(id string) (*models.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	properties, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	for i := range properties {
		if properties[i].ID == id {
			p := copyProperty(properties[i])
			return &p, nil
		}
	}
	return nil, fmt.Errorf("property with ID %s: %w", id, ErrNotFound)
}

// SaveAll overwrites the entire collection. The backing directory is created
// if missing and the file is replaced atomically, so readers never observe a
// half-written collection.
func (r *FilePropertyRepository) SaveAll(properties []models.Property) error {
	seen := make(map[string]struct{}, len(properties))
	for _, p := range properties {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate property ID %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(properties)
}

// loadLocked reads the backing file, seeding defaults when it is absent or
// unreadable. Callers must hold the write lock because the seeding branches
// persist state.
func (r *FilePropertyRepository) loadLocked() ([]models.Property, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return r.seedLocked()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read property store %s: %w", r.path, err)
	}

	var properties []models.Property
	if err := json.Unmarshal(data, &properties); err != nil {
		// Keep the bad bytes around for manual recovery, then start over
		// from the default catalog.
		backup := r.path + ".corrupt"
		if renameErr := os.Rename(r.path, backup); renameErr != nil {
			return nil, fmt.Errorf("property store %s is corrupt and could not be moved aside: %w", r.path, renameErr)
		}
		log.Printf("Warning: property store %s was corrupt (%v); moved to %s and re-seeding defaults", r.path, err, backup)
		return r.seedLocked()
	}
	return properties, nil
}

// seedLocked writes the default catalog and returns it, so every subsequent
// read sees the same records.
func (r *FilePropertyRepository) seedLocked() ([]models.Property, error) {
	properties := DefaultProperties(time.Now())
	if err := r.writeLocked(properties); err != nil {
		return nil, fmt.Errorf("failed to seed property store: %w", err)
	}
	return properties, nil
}

func (r *FilePropertyRepository) writeLocked(properties []models.Property) error {
	if properties == nil {
		properties = []models.Property{}
	}
	data, err := json.MarshalIndent(properties, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}
	if err := fsutil.AtomicWriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write property store %s: %w", r.path, err)
	}
	return nil
}

// DefaultProperties is the built-in catalog seeded when no persisted data
// exists. Timestamps are computed at seed time, so re-seeding after an
// external delete produces fresh dates.
func DefaultProperties(now time.Time) []models.Property {
	ts := now.UTC().Format(time.RFC3339)
	return []models.Property{
		{
			ID:          "prop_1",
			Name:        "Riverside Family Home",
			Price:       "$450,000",
			Location:    "123 Oak Street, Riverside",
			Bedrooms:    4,
			Bathrooms:   3,
			Sqft:        2400,
			Status:      models.StatusForSale,
			Description: "Spacious family home with a landscaped garden, modern kitchen and a two-car garage, minutes from Riverside schools.",
			Images:      []string{"/images/properties/riverside-family-home.jpg"},
			Featured:    true,
			DateCreated: ts,
			DateUpdated: ts,
		},
		{
			ID:          "prop_2",
			Name:        "Downtown Modern Apartment",
			Price:       "$320,000",
			Location:    "456 City Center, Downtown",
			Bedrooms:    2,
			Bathrooms:   2,
			Sqft:        1100,
			Status:      models.StatusForSale,
			Description: "Bright two-bedroom apartment on the 12th floor with floor-to-ceiling windows and access to a rooftop terrace.",
			Images:      []string{"/images/properties/downtown-modern-apartment.jpg"},
			Featured:    true,
			DateCreated: ts,
			DateUpdated: ts,
		},
		{
			ID:          "prop_3",
			Name:        "Hillcrest Luxury Villa",
			Price:       "$780,000",
			Location:    "789 Pine Avenue, Hillcrest",
			Bedrooms:    5,
			Bathrooms:   4,
			Sqft:        3600,
			Status:      models.StatusForSale,
			Description: "Hillside villa with panoramic city views, private pool and a self-contained guest suite.",
			Images:      []string{"/images/properties/hillcrest-luxury-villa.jpg"},
			Featured:    true,
			DateCreated: ts,
			DateUpdated: ts,
		},
	}
}

// copyProperty returns a value copy whose Images slice does not alias the
// store-owned one.
func copyProperty(p models.Property) models.Property {
	if p.Images != nil {
		images := make([]string, len(p.Images))
		copy(images, p.Images)
		p.Images = images
	}
	return p
}

func copyProperties(properties []models.Property) []models.Property {
	out := make([]models.Property, len(properties))
	for i, p := range properties {
		out[i] = copyProperty(p)
	}
	return out
}
