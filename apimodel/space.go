package apimodel

import "time"

type Space struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Capacity       int       `json:"capacity"`
	PricePerHour   float64   `json:"price_per_hour"`
	Amenities      []string  `json:"amenities,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateSpaceRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capacity     int      `json:"capacity"`
	PricePerHour float64  `json:"price_per_hour"`
	Amenities    []string `json:"amenities,omitempty"`
}

// UpdateSpaceRequest only sends the fields that are set.
type UpdateSpaceRequest struct {
	Name         *string   `json:"name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Capacity     *int      `json:"capacity,omitempty"`
	PricePerHour *float64  `json:"price_per_hour,omitempty"`
	Amenities    *[]string `json:"amenities,omitempty"`
	IsActive     *bool     `json:"is_active,omitempty"`
}
