package domain

import (
	"time"

	"github.com/google/uuid"
)

// Query is one generated search phrase. Immutable after creation.
type Query struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	BatchID   uuid.UUID `json:"batch_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
