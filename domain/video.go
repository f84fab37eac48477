package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalysisStatus represents the lifecycle state of a video's analysis.
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// AnalysisInProgressSentinel is the legacy in-progress marker written to the
// description column while analysis runs. State decisions are made on
// AnalysisStatus only; the sentinel is kept so readers of the raw column still
// observe the documented null / in-progress / terminal tri-state.
const AnalysisInProgressSentinel = "Video analysis in progress..."

// AnalysisErrorPrefix prefixes terminal failure text in the description column.
const AnalysisErrorPrefix = "Error: "

// StuckAnalysisMessage is written when a video sat in processing past the
// configured budget.
const StuckAnalysisMessage = AnalysisErrorPrefix + "analysis took too long and was terminated"

// VideoStats holds the popularity counters captured at scrape time.
type VideoStats struct {
	Views int64 `json:"views"`
	Likes int64 `json:"likes"`
}

// Video is one scraped candidate video belonging to a query.
type Video struct {
	ID              uuid.UUID      `json:"id"`
	QueryID         uuid.UUID      `json:"query_id"`
	BatchID         uuid.UUID      `json:"batch_id"`
	OwnerID         string         `json:"owner_id"`
	SourceURL       string         `json:"source_url"`
	DownloadURL     string         `json:"download_url"`
	Caption         string         `json:"caption"`
	Stats           VideoStats     `json:"stats"`
	Hashtags        []string       `json:"hashtags"`
	AnalysisStatus  AnalysisStatus `json:"analysis_status"`
	Description     *string        `json:"description"`
	DisplaySummary  *string        `json:"display_summary"`
	ErrorMessage    *string        `json:"error_message"`
	RetryCount      int            `json:"retry_count"`
	MaxRetries      int            `json:"max_retries"`
	DispatchedAt    *time.Time     `json:"dispatched_at"`
	LastDescribedAt *time.Time     `json:"last_described_at"`
	CreatedAt       time.Time      `json:"created_at"`
}

// IsTerminal returns true if analysis reached a final state.
func (v *Video) IsTerminal() bool {
	return v.AnalysisStatus == AnalysisStatusCompleted || v.AnalysisStatus == AnalysisStatusFailed
}

// CanRetry returns true if a failed analysis may be attempted again.
func (v *Video) CanRetry() bool {
	return v.AnalysisStatus == AnalysisStatusFailed && v.RetryCount < v.MaxRetries
}

// BestMediaURL prefers the re-hosted download URL over the original source URL.
func (v *Video) BestMediaURL() string {
	if v.DownloadURL != "" {
		return v.DownloadURL
	}
	return v.SourceURL
}

// HasPlayableURL reports whether the video carries any usable media URL.
func (v *Video) HasPlayableURL() bool {
	return v.DownloadURL != "" || v.SourceURL != ""
}

// IsErrorDescription reports whether terminal description text records a failure.
func IsErrorDescription(description string) bool {
	return strings.HasPrefix(description, AnalysisErrorPrefix)
}

// displaySummaryLimit bounds the dashboard preview field.
const displaySummaryLimit = 500

// DisplaySummary truncates a full description to the preview length, cutting
// on a rune boundary.
func DisplaySummary(description string) string {
	runes := []rune(description)
	if len(runes) <= displaySummaryLimit {
		return description
	}
	return string(runes[:displaySummaryLimit])
}
