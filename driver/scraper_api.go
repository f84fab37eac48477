package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"trend-processor/config"
	"trend-processor/domain"
	"trend-processor/retry"
	"trend-processor/utils"
)

// VideoSearchResult is one mapped item from the keyword search response.
// Items may be missing a playable URL; callers decide whether to skip them.
type VideoSearchResult struct {
	SourceURL   string
	DownloadURL string
	Caption     string
	Views       int64
	Likes       int64
	Hashtags    []string
}

// ScraperClient calls the keyword video search API.
type ScraperClient struct {
	cfg     *config.Config
	client  *utils.VendorClient
	retrier *retry.Retrier
	logger  *slog.Logger
}

// NewScraperClient creates a scraper API client with rate limiting, a
// circuit breaker and backoff retries for transient vendor failures.
func NewScraperClient(cfg *config.Config, logger *slog.Logger) *ScraperClient {
	client := utils.NewVendorClient(time.Second, cfg.Scraper.Timeout, cfg.HTTP.UserAgent, logger).
		WithCircuitBreaker(3, 10*time.Second)

	return &ScraperClient{
		cfg:     cfg,
		client:  client,
		retrier: retry.NewRetrier(retryConfig(cfg), retry.IsRetryable, logger),
		logger:  logger,
	}
}

// searchResponse mirrors the vendor's envelope. The items themselves are
// heterogeneous across vendor versions, hence the fallback chains below.
type searchResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data searchItemsData `json:"data"`
}

type searchItemsData struct {
	Videos []searchItem `json:"videos"`
}

type searchItem struct {
	VideoID   string          `json:"video_id"`
	AwemeID   string          `json:"aweme_id"`
	Title     string          `json:"title"`
	Desc      string          `json:"desc"`
	Play      string          `json:"play"`
	Download  string          `json:"download"`
	Wmplay    string          `json:"wmplay"`
	ShareURL  string          `json:"share_url"`
	PlayCount json.Number     `json:"play_count"`
	DiggCount json.Number     `json:"digg_count"`
	LikeCount json.Number     `json:"like_count"`
	Author    json.RawMessage `json:"author"`
}

type searchItemAuthor struct {
	UniqueID string `json:"unique_id"`
	Nickname string `json:"nickname"`
}

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// SearchVideos runs a keyword search and maps the raw items. It requests
// cfg.Scraper.RequestCount items so callers can filter and still keep their cap.
func (c *ScraperClient) SearchVideos(ctx context.Context, keywords string) ([]VideoSearchResult, error) {
	if err := c.cfg.RequireScraperCredentials(); err != nil {
		return nil, err
	}

	var results []VideoSearchResult
	err := c.retrier.Do(ctx, func() error {
		var searchErr error
		results, searchErr = c.searchOnce(ctx, keywords)
		return searchErr
	})
	return results, err
}

func (c *ScraperClient) searchOnce(ctx context.Context, keywords string) ([]VideoSearchResult, error) {

	endpoint := fmt.Sprintf("%s/feed/search?%s", strings.TrimSuffix(c.cfg.Scraper.BaseURL, "/"), url.Values{
		"keywords": {keywords},
		"count":    {strconv.Itoa(c.cfg.Scraper.RequestCount)},
		"cursor":   {"0"},
		"region":   {c.cfg.Scraper.Region},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.cfg.Scraper.APIKey)

	c.logger.Debug("searching videos", "keywords", keywords, "count", c.cfg.Scraper.RequestCount)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("scraper request failed", "error", err, "keywords", keywords)
		return nil, fmt.Errorf("%w: %v", domain.ErrScraperUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrServiceOverloaded
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("scraper returned non-200 status", "status", resp.StatusCode, "body", string(body))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: scraper request failed with status %d", domain.ErrScraperUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("scraper request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if parsed.Code != 0 {
		return nil, fmt.Errorf("scraper returned error code %d: %s", parsed.Code, parsed.Msg)
	}

	results := make([]VideoSearchResult, 0, len(parsed.Data.Videos))
	for _, item := range parsed.Data.Videos {
		results = append(results, mapSearchItem(item))
	}

	c.logger.Info("video search completed", "keywords", keywords, "items", len(results))

	return results, nil
}

// mapSearchItem flattens one heterogeneous vendor item. Fallback chains follow
// the vendor's field drift across versions.
func mapSearchItem(item searchItem) VideoSearchResult {
	caption := firstNonEmpty(item.Title, item.Desc)

	download := firstNonEmpty(item.Play, item.Download, item.Wmplay)

	source := item.ShareURL
	if source == "" {
		id := firstNonEmpty(item.VideoID, item.AwemeID)
		if id != "" {
			var author searchItemAuthor
			_ = json.Unmarshal(item.Author, &author)
			if author.UniqueID != "" {
				source = fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", author.UniqueID, id)
			}
		}
	}

	likes := numberOr(item.DiggCount, numberOr(item.LikeCount, 0))

	return VideoSearchResult{
		SourceURL:   source,
		DownloadURL: download,
		Caption:     caption,
		Views:       numberOr(item.PlayCount, 0),
		Likes:       likes,
		Hashtags:    extractHashtags(caption),
	}
}

func extractHashtags(caption string) []string {
	matches := hashtagPattern.FindAllString(caption, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimPrefix(m, "#"))
	}
	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func numberOr(n json.Number, def int64) int64 {
	if n == "" {
		return def
	}
	v, err := n.Int64()
	if err != nil {
		return def
	}
	return v
}
