package driver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"trend-processor/config"
	"trend-processor/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scraperConfig(baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Scraper.BaseURL = baseURL
	cfg.Scraper.APIKey = "test-key"
	cfg.Scraper.Region = "US"
	cfg.Scraper.RequestCount = 20
	cfg.Scraper.KeepCount = 5
	cfg.HTTP.UserAgent = "trend-processor/1.0"
	return cfg
}

func TestScraperClient_SearchVideos(t *testing.T) {
	t.Run("should map heterogeneous items with fallback chains", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.Header.Get("X-RapidAPI-Key"))
			assert.Equal(t, "coffee roasting tips", r.URL.Query().Get("keywords"))
			assert.Equal(t, "20", r.URL.Query().Get("count"))
			assert.Equal(t, "US", r.URL.Query().Get("region"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"code": 0,
				"data": {"videos": [
					{
						"video_id": "v1",
						"title": "Light roast basics #coffee #roasting",
						"play": "https://cdn.example.com/v1.mp4",
						"share_url": "https://www.tiktok.com/@roaster/video/v1",
						"play_count": 1200,
						"digg_count": 340
					},
					{
						"aweme_id": "v2",
						"desc": "Drum roaster tour",
						"wmplay": "https://cdn.example.com/v2-wm.mp4",
						"like_count": 88,
						"author": {"unique_id": "beanlord"}
					},
					{
						"video_id": "v3",
						"title": "No media here"
					}
				]}
			}`))
		}))
		defer server.Close()

		client := NewScraperClient(scraperConfig(server.URL), testLogger())
		results, err := client.SearchVideos(context.Background(), "coffee roasting tips")
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "https://cdn.example.com/v1.mp4", results[0].DownloadURL)
		assert.Equal(t, "https://www.tiktok.com/@roaster/video/v1", results[0].SourceURL)
		assert.Equal(t, int64(340), results[0].Likes)
		assert.Equal(t, int64(1200), results[0].Views)
		assert.Equal(t, []string{"coffee", "roasting"}, results[0].Hashtags)

		// wmplay fallback, like_count fallback, synthesized source URL
		assert.Equal(t, "https://cdn.example.com/v2-wm.mp4", results[1].DownloadURL)
		assert.Equal(t, "https://www.tiktok.com/@beanlord/video/v2", results[1].SourceURL)
		assert.Equal(t, int64(88), results[1].Likes)
		assert.Equal(t, "Drum roaster tour", results[1].Caption)

		// item without any playable URL is still returned; callers skip it
		assert.Empty(t, results[2].DownloadURL)
		assert.Empty(t, results[2].SourceURL)
	})

	t.Run("should fail fast without credentials", func(t *testing.T) {
		cfg := scraperConfig("https://scraper.example.com")
		cfg.Scraper.APIKey = ""

		client := NewScraperClient(cfg, testLogger())
		_, err := client.SearchVideos(context.Background(), "anything")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SCRAPER_API_KEY")
	})

	t.Run("should surface vendor error codes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code": -1, "msg": "invalid region"}`))
		}))
		defer server.Close()

		client := NewScraperClient(scraperConfig(server.URL), testLogger())
		_, err := client.SearchVideos(context.Background(), "anything")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid region")
	})

	t.Run("should map 429 to overloaded error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewScraperClient(scraperConfig(server.URL), testLogger())
		_, err := client.SearchVideos(context.Background(), "anything")
		assert.ErrorIs(t, err, domain.ErrServiceOverloaded)
	})
}

func TestExtractHashtags(t *testing.T) {
	t.Run("should extract hashtags without the hash", func(t *testing.T) {
		tags := extractHashtags("morning routine #coffee #v60_brew no tag here")
		assert.Equal(t, []string{"coffee", "v60_brew"}, tags)
	})

	t.Run("should return empty slice without hashtags", func(t *testing.T) {
		assert.Empty(t, extractHashtags("plain caption"))
	})
}
