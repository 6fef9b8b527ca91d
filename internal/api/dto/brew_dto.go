package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
)

// BrewView is the public projection of a brew.
type BrewView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creation_date"`
}

// BrewAllResponse is a page of brews with the total count.
type BrewAllResponse struct {
	Total int64      `json:"total"`
	Brews []BrewView `json:"brews"`
}

// NewBrewAllResponse projects a page of brews.
func NewBrewAllResponse(brews []domain.Brew, total int64) BrewAllResponse {
	views := make([]BrewView, 0, len(brews))
	for _, b := range brews {
		views = append(views, BrewView{ID: b.ID, Name: b.Name, CreationDate: b.CreationDate})
	}
	return BrewAllResponse{Total: total, Brews: views}
}
