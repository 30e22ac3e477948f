package domain

import "time"

// Review is a restaurant review as seen by the visibility layer. The review
// lifecycle (creation, dish ratings, photos) is owned elsewhere; this service
// only reads reviews to decide and apply per-viewer visibility.
type Review struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	RestaurantID   string    `json:"restaurant_id"`
	RestaurantName string    `json:"restaurant_name"`
	Rating         float64   `json:"rating"`
	Body           string    `json:"body"`
	GroupID        *string   `json:"group_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewCursor is the keyset pagination key: the created_at of the last row
// returned, with the row ID as tie-breaker.
type ReviewCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}
