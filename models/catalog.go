package models

import "time"

// Category groups services; ID is the provider's numeric id.
type Category struct {
	ID                 int    `json:"categoryId"`
	Title              string `json:"title"`
	SelectServiceTitle string `json:"selectServiceTitle,omitempty"`
}

// Service belongs to exactly one Category.
type Service struct {
	ID             int     `json:"serviceId"`
	CategoryID     int     `json:"categoryId"`
	Title          string  `json:"title"`
	Price          string  `json:"price"`
	PriceNumber    float64 `json:"priceNumber"`
	DurationString string  `json:"durationString"`
	Duration       int     `json:"duration"` // minutes
	Description    string  `json:"description,omitempty"`
}

// CatalogEntry is a cached catalog listing with the time it was fetched.
type CatalogEntry[T any] struct {
	Value     []T       `json:"value"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e CatalogEntry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return !e.FetchedAt.IsZero() && now.Sub(e.FetchedAt) < ttl
}
