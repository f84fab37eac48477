package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchStage is the durable cursor of a pipeline batch.
type BatchStage string

const (
	BatchStageGenerating   BatchStage = "generating"
	BatchStageScraping     BatchStage = "scraping"
	BatchStageAnalyzing    BatchStage = "analyzing"
	BatchStageSynthesizing BatchStage = "synthesizing"
	BatchStageCompleted    BatchStage = "completed"
	BatchStageFailed       BatchStage = "failed"
)

// TrendBatch tracks one end-to-end pipeline run for an owner.
type TrendBatch struct {
	BatchID             uuid.UUID  `json:"batch_id"`
	OwnerID             string     `json:"owner_id"`
	BusinessDescription string     `json:"business_description"`
	Stage               BatchStage `json:"stage"`
	QueryCount          int        `json:"query_count"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsTerminal returns true if the batch reached a final stage.
func (b *TrendBatch) IsTerminal() bool {
	return b.Stage == BatchStageCompleted || b.Stage == BatchStageFailed
}
