package models

// Property represents a single listing on the site.
//
// Price stays a display string ("$450,000") because nothing in the system does
// currency math on it. DateCreated and DateUpdated are RFC 3339 strings so the
// serialized form stays sortable as plain text.
type Property struct {
	ID          string   `json:"id" validate:"omitempty,max=64"`
	Name        string   `json:"name" validate:"required,min=3,max=200"`
	Price       string   `json:"price" validate:"required"`
	Location    string   `json:"location" validate:"required"`
	Bedrooms    int      `json:"bedrooms" validate:"gte=0"`
	Bathrooms   int      `json:"bathrooms" validate:"gte=0"`
	Sqft        int      `json:"sqft" validate:"gt=0"`
	Status      string   `json:"status"`
	Description string   `json:"description" validate:"omitempty,max=2000"`
	Images      []string `json:"images"`
	Featured    bool     `json:"featured"`
	DateCreated string   `json:"dateCreated"`
	DateUpdated string   `json:"dateUpdated"`
}

// StatusForSale is the only listing status the site currently renders.
// Other values pass through unvalidated.
const StatusForSale = "for-sale"
