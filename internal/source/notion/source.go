// Package notion adapts the CMS database query API into a producer of typed
// records. Pagination, dynamic property bags, and shape validation all stay
// behind this boundary.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"contenthub/internal/domain"
)

const apiVersion = "2022-06-28"

// Config holds source connection parameters.
type Config struct {
	BaseURL        string
	Token          string
	PageSize       int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client queries CMS databases. One QueryAll call drains one database; a new
// call re-queries from scratch.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	pageSize       int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		token:          cfg.Token,
		pageSize:       cfg.PageSize,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", "notion"),
	}
}

// QueryAll fetches every record of one database, transparently paginating
// until the cursor is exhausted. Records failing shape validation are logged
// and dropped, not fatal.
func (c *Client) QueryAll(ctx context.Context, databaseID string) ([]domain.Record, error) {
	var pages []page
	cursor := ""

	for {
		resp, err := c.queryPage(ctx, databaseID, cursor)
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}

		pages = append(pages, resp.Results...)

		c.logger.Debug("fetched page",
			"database", databaseID,
			"records", len(resp.Results),
			"total", len(pages),
		)

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return c.transform(pages), nil
}

func (c *Client) queryPage(ctx context.Context, databaseID, cursor string) (*queryResponse, error) {
	var resp *queryResponse
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err = c.doRequest(ctx, databaseID, cursor)
		if err == nil {
			return resp, nil
		}

		if attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"database", databaseID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxAttempts, err)
}

func (c *Client) doRequest(ctx context.Context, databaseID, cursor string) (*queryResponse, error) {
	body, err := json.Marshal(queryRequest{PageSize: c.pageSize, StartCursor: cursor})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

func (c *Client) transform(pages []page) []domain.Record {
	records := make([]domain.Record, 0, len(pages))

	for _, p := range pages {
		record, ok := c.parsePage(p)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	return records
}

// parsePage projects the dynamic property bag into a typed Record. A page
// without an id or title fails validation.
func (c *Client) parsePage(p page) (domain.Record, bool) {
	record := domain.Record{ID: p.ID}

	if title, ok := p.Properties["Name"]; ok {
		record.Title = joinText(title.Title)
	}

	if p.ID == "" || record.Title == "" {
		c.logger.Warn("dropping malformed record", "id", p.ID, "title", record.Title)
		return domain.Record{}, false
	}

	if prop, ok := p.Properties["Status"]; ok && prop.Status != nil {
		record.Status = prop.Status.Name
	}
	if prop, ok := p.Properties["Type"]; ok && prop.Select != nil {
		record.ContentType = prop.Select.Name
	}
	if prop, ok := p.Properties["Description"]; ok {
		record.Excerpt = joinText(prop.RichText)
	}
	if prop, ok := p.Properties["Email"]; ok && prop.Email != nil {
		record.Email = *prop.Email
	}
	if prop, ok := p.Properties["Whatsapp"]; ok && prop.URL != nil {
		record.WhatsappURL = *prop.URL
	}
	if prop, ok := p.Properties["Website"]; ok && prop.URL != nil {
		record.WebsiteURL = *prop.URL
	}
	if prop, ok := p.Properties["Instagram"]; ok && prop.URL != nil {
		record.InstagramURL = *prop.URL
	}
	if prop, ok := p.Properties["Publish date"]; ok && prop.Date != nil {
		if at, err := time.Parse(time.RFC3339, prop.Date.Start); err == nil {
			record.PublishedAt = at
		} else if at, err := time.Parse("2006-01-02", prop.Date.Start); err == nil {
			record.PublishedAt = at
		}
	}

	if p.Cover != nil && p.Cover.External != nil {
		record.CoverURL = p.Cover.External.URL
	}
	if p.Icon != nil && p.Icon.External != nil {
		record.IconURL = p.Icon.External.URL
	}

	if at, err := time.Parse(time.RFC3339, p.CreatedTime); err == nil {
		record.CreatedAt = at
	}
	if at, err := time.Parse(time.RFC3339, p.LastEditedTime); err == nil {
		record.LastEditedAt = at
	}

	return record, true
}

func joinText(parts []richText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return strings.TrimSpace(b.String())
}
