// ABOUTME: Domain-level sentinel errors for the trend-processor service
// ABOUTME: These errors are used with errors.Is() for error type checking
package domain

import "errors"

// Batch and entity lookup errors
var (
	// ErrBatchNotFound indicates the requested batch does not exist
	ErrBatchNotFound = errors.New("batch not found")

	// ErrVideoNotFound indicates the requested video does not exist
	ErrVideoNotFound = errors.New("video not found")

	// ErrQueryNotFound indicates the requested query does not exist
	ErrQueryNotFound = errors.New("query not found")

	// ErrRecommendationNotFound indicates no recommendation exists for the batch yet
	ErrRecommendationNotFound = errors.New("recommendation not found")
)

// Pipeline errors
var (
	// ErrQueryCountMismatch indicates the generator did not produce exactly the
	// requested number of queries. Partial lists are never accepted.
	ErrQueryCountMismatch = errors.New("generated query count does not match requested count")

	// ErrNoPlayableURL indicates a scraped item carries no usable media URL
	ErrNoPlayableURL = errors.New("scraped item has no playable URL")

	// ErrAnalysisTooShort indicates the vision model returned content below the
	// configured minimum length. Non-retryable as a success; recorded as failure.
	ErrAnalysisTooShort = errors.New("analysis content below minimum length")

	// ErrNoAnalyzedVideos indicates a batch has no terminal-success videos to
	// synthesize from
	ErrNoAnalyzedVideos = errors.New("no analyzed videos available for synthesis")

	// ErrPollBudgetExhausted indicates a status poll gave up before the video
	// reached a terminal state
	ErrPollBudgetExhausted = errors.New("poll budget exhausted before analysis finished")
)

// Validation errors
var (
	// ErrInvalidRequest indicates the request format is invalid
	ErrInvalidRequest = errors.New("invalid request format")

	// ErrMissingBusinessDescription indicates business_description is required but missing
	ErrMissingBusinessDescription = errors.New("business description is required")

	// ErrMissingOwner indicates the request carries no owner identity
	ErrMissingOwner = errors.New("owner identity is required")
)

// External service errors
var (
	// ErrScraperUnavailable indicates the video search API is not reachable
	ErrScraperUnavailable = errors.New("scraper service unavailable")

	// ErrLLMUnavailable indicates the language model API is not reachable
	ErrLLMUnavailable = errors.New("language model service unavailable")

	// ErrServiceOverloaded indicates a downstream service returned 429
	ErrServiceOverloaded = errors.New("downstream service overloaded")
)
