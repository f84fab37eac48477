package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisStatusConstants(t *testing.T) {
	t.Run("should have all expected status constants", func(t *testing.T) {
		assert.Equal(t, AnalysisStatus("pending"), AnalysisStatusPending)
		assert.Equal(t, AnalysisStatus("processing"), AnalysisStatusProcessing)
		assert.Equal(t, AnalysisStatus("completed"), AnalysisStatusCompleted)
		assert.Equal(t, AnalysisStatus("failed"), AnalysisStatusFailed)
	})
}

func TestVideo_IsTerminal(t *testing.T) {
	t.Run("should return true for completed status", func(t *testing.T) {
		video := &Video{AnalysisStatus: AnalysisStatusCompleted}
		assert.True(t, video.IsTerminal())
	})

	t.Run("should return true for failed status", func(t *testing.T) {
		video := &Video{AnalysisStatus: AnalysisStatusFailed}
		assert.True(t, video.IsTerminal())
	})

	t.Run("should return false for pending status", func(t *testing.T) {
		video := &Video{AnalysisStatus: AnalysisStatusPending}
		assert.False(t, video.IsTerminal())
	})

	t.Run("should return false for processing status", func(t *testing.T) {
		video := &Video{AnalysisStatus: AnalysisStatusProcessing}
		assert.False(t, video.IsTerminal())
	})
}

func TestVideo_CanRetry(t *testing.T) {
	t.Run("should return true when failed and retry_count < max_retries", func(t *testing.T) {
		video := &Video{
			AnalysisStatus: AnalysisStatusFailed,
			RetryCount:     1,
			MaxRetries:     3,
		}
		assert.True(t, video.CanRetry())
	})

	t.Run("should return false when retry_count >= max_retries", func(t *testing.T) {
		video := &Video{
			AnalysisStatus: AnalysisStatusFailed,
			RetryCount:     3,
			MaxRetries:     3,
		}
		assert.False(t, video.CanRetry())
	})

	t.Run("should return false when not failed", func(t *testing.T) {
		video := &Video{
			AnalysisStatus: AnalysisStatusCompleted,
			RetryCount:     0,
			MaxRetries:     3,
		}
		assert.False(t, video.CanRetry())
	})
}

func TestVideo_BestMediaURL(t *testing.T) {
	t.Run("should prefer download URL when present", func(t *testing.T) {
		video := &Video{
			SourceURL:   "https://www.tiktok.com/@user/video/1",
			DownloadURL: "https://cdn.example.com/clean/1.mp4",
		}
		assert.Equal(t, "https://cdn.example.com/clean/1.mp4", video.BestMediaURL())
	})

	t.Run("should fall back to source URL", func(t *testing.T) {
		video := &Video{SourceURL: "https://www.tiktok.com/@user/video/1"}
		assert.Equal(t, "https://www.tiktok.com/@user/video/1", video.BestMediaURL())
	})
}

func TestVideo_HasPlayableURL(t *testing.T) {
	t.Run("should return false when both URLs are empty", func(t *testing.T) {
		assert.False(t, (&Video{}).HasPlayableURL())
	})

	t.Run("should return true with only a source URL", func(t *testing.T) {
		assert.True(t, (&Video{SourceURL: "https://example.com/v"}).HasPlayableURL())
	})
}

func TestDisplaySummary(t *testing.T) {
	t.Run("should keep short descriptions intact", func(t *testing.T) {
		assert.Equal(t, "short", DisplaySummary("short"))
	})

	t.Run("should truncate long descriptions to 500 runes", func(t *testing.T) {
		long := strings.Repeat("a", 900)
		got := DisplaySummary(long)
		assert.Len(t, []rune(got), 500)
	})

	t.Run("should cut on rune boundaries", func(t *testing.T) {
		long := strings.Repeat("あ", 600)
		got := DisplaySummary(long)
		assert.Len(t, []rune(got), 500)
	})
}

func TestIsErrorDescription(t *testing.T) {
	t.Run("should detect error-prefixed terminal text", func(t *testing.T) {
		assert.True(t, IsErrorDescription(AnalysisErrorPrefix+"vendor call failed"))
		assert.True(t, IsErrorDescription(StuckAnalysisMessage))
	})

	t.Run("should not flag successful descriptions", func(t *testing.T) {
		assert.False(t, IsErrorDescription("A barista demonstrates pour-over technique."))
		assert.False(t, IsErrorDescription(AnalysisInProgressSentinel))
	})
}
