package domain

import (
	"time"

	"github.com/google/uuid"
)

// Brew is a kombucha batch.
type Brew struct {
	ID           uuid.UUID
	Name         string
	CreationDate time.Time
}
