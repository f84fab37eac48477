package domain

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation is the synthesized narrative for one completed batch.
// Immutable after creation.
type Recommendation struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     string      `json:"owner_id"`
	BatchID     uuid.UUID   `json:"batch_id"`
	VideoIDs    []uuid.UUID `json:"video_ids"`
	SummaryText string      `json:"summary_text"`
	// Degraded marks a template-filled fallback produced after an LLM failure.
	Degraded  bool      `json:"degraded"`
	CreatedAt time.Time `json:"created_at"`
}
