package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"azlistings/internal/models"
	"azlistings/internal/repositories"
	"azlistings/pkg/rabbitmq"
)

// PropertyService handles business logic for property listings.
//
// Writes are read-modify-write cycles over the repository's whole-collection
// primitives, so a mutex serializes them; without it two concurrent admin
// writers could load the same snapshot and the second save would silently
// drop the first writer's change.
type PropertyService struct {
	repo     repositories.PropertyRepository
	mqClient *rabbitmq.Client
	mu       sync.Mutex
}

// NewPropertyService creates a new PropertyService. mqClient may be nil, in
// which case listing events are skipped.
func NewPropertyService(repo repositories.PropertyRepository, mqClient *rabbitmq.Client) *PropertyService {
	return &PropertyService{
		repo:     repo,
		mqClient: mqClient,
	}
}

// ListProperties retrieves all listings.
func (s *PropertyService) ListProperties() ([]models.Property, error) {
	return s.repo.ListAll()
}

// GetPropertyByID retrieves a single listing by its ID.
func (s *PropertyService) GetPropertyByID(id string) (*models.Property, error) {
	return s.repo.GetByID(id)
}

// ListFeatured returns the listings promoted on the home page.
func (s *PropertyService) ListFeatured() ([]models.Property, error) {
	properties, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	featured := make([]models.Property, 0, len(properties))
	for _, p := range properties {
		if p.Featured {
			featured = append(featured, p)
		}
	}
	return featured, nil
}

// CreateProperty appends a new listing. An empty ID is assigned the next free
// prop_<n> identifier; an explicit ID must not collide with an existing one.
// Both timestamps are stamped at creation.
func (s *PropertyService) CreateProperty(property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties, err := s.repo.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load properties: %w", err)
	}

	if property.ID == "" {
		property.ID = nextPropertyID(properties)
	} else {
		for _, p := range properties {
			if p.ID == property.ID {
				return fmt.Errorf("property with ID %s already exists", property.ID)
			}
		}
	}
	if property.Status == "" {
		property.Status = models.StatusForSale
	}
	if property.Images == nil {
		property.Images = []string{}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	property.DateCreated = now
	property.DateUpdated = now

	if err := s.repo.SaveAll(append(properties, *property)); err != nil {
		return fmt.Errorf("failed to save properties: %w", err)
	}

	s.publishEvent("listing.created", property)
	return nil
}

// UpdateProperty replaces an existing listing in place. DateCreated is
// preserved from the stored record and DateUpdated is refreshed, keeping
// DateUpdated >= DateCreated.
func (s *PropertyService) UpdateProperty(property *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties, err := s.repo.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load properties: %w", err)
	}

	idx := -1
	for i := range properties {
		if properties[i].ID == property.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("property with ID %s: %w", property.ID, repositories.ErrNotFound)
	}

	property.DateCreated = properties[idx].DateCreated
	property.DateUpdated = time.Now().UTC().Format(time.RFC3339)
	if property.Images == nil {
		property.Images = []string{}
	}
	properties[idx] = *property

	if err := s.repo.SaveAll(properties); err != nil {
		return fmt.Errorf("failed to save properties: %w", err)
	}

	s.publishEvent("listing.updated", property)
	return nil
}

// DeleteProperty removes a listing by its ID.
func (s *PropertyService) DeleteProperty(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	properties, err := s.repo.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load properties: %w", err)
	}

	remaining := make([]models.Property, 0, len(properties))
	var removed *models.Property
	for i := range properties {
		if properties[i].ID == id {
			removed = &properties[i]
			continue
		}
		remaining = append(remaining, properties[i])
	}
	if removed == nil {
		return fmt.Errorf("property with ID %s: %w", id, repositories.ErrNotFound)
	}

	if err := s.repo.SaveAll(remaining); err != nil {
		return fmt.Errorf("failed to save properties: %w", err)
	}

	s.publishEvent("listing.deleted", removed)
	return nil
}

// ReplaceAll overwrites the whole collection, the bulk import path for admin
// tooling. Records are persisted exactly as given, timestamps included.
func (s *PropertyService) ReplaceAll(properties []models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveAll(properties); err != nil {
		return fmt.Errorf("failed to save properties: %w", err)
	}
	return nil
}

// publishEvent sends a listing change event. Event delivery is best effort:
// a missing broker or a publish failure must never fail the admin write that
// already persisted.
func (s *PropertyService) publishEvent(event string, property *models.Property) {
	if s.mqClient == nil {
		log.Println("RabbitMQ client is not initialized. Skipping message publication.")
		return
	}

	payload := map[string]interface{}{
		"propertyId": property.ID,
		"name":       property.Name,
		"status":     property.Status,
		"featured":   property.Featured,
	}
	if err := s.mqClient.PublishListingEvent(event, payload); err != nil {
		log.Printf("Warning: Failed to publish %s event for property %s: %v", event, property.ID, err)
	} else {
		log.Printf("Successfully published %s event for property %s", event, property.ID)
	}
}

// nextPropertyID returns prop_<n> where n is one past the highest numeric
// suffix already in use. Non-conforming ids are ignored.
func nextPropertyID(properties []models.Property) string {
	max := 0
	for _, p := range properties {
		suffix, ok := strings.CutPrefix(p.ID, "prop_")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("prop_%d", max+1)
}
