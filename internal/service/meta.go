package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contenthub/internal/domain"
	"contenthub/internal/normalize"
	"contenthub/internal/storage/kv"
)

// MetaService resolves link-preview metadata for URLs with a cache-aside
// policy: fresh hits are served without I/O, stale hits are served
// immediately while a detached refresh runs, and misses refresh
// synchronously. Internal resource data is preferred over a live scrape.
type MetaService struct {
	store      Store
	scraper    Scraper
	background BackgroundRunner
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

func NewMetaService(
	store Store,
	scraper Scraper,
	background BackgroundRunner,
	ttl time.Duration,
	logger *slog.Logger,
) *MetaService {
	return &MetaService{
		store:      store,
		scraper:    scraper,
		background: background,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger.With("task", "sync:meta-data"),
	}
}

func (s *MetaService) Resolve(ctx context.Context, rawURL string) (domain.MetaData, error) {
	key := kv.Key("meta-data", normalize.URL(rawURL))

	raw, err := s.store.Get(ctx, key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		// Treat an unreadable cache entry like a miss; the refresh rewrites it.
		s.logger.Warn("meta cache read failed", "key", key, "error", err)
	}
	if err == nil {
		var data domain.MetaData
		if err := json.Unmarshal(raw, &data); err == nil {
			if s.now().Sub(data.LastUpdated) <= s.ttl {
				return data, nil
			}
			s.background.Go("meta:refresh", func(ctx context.Context) {
				if _, err := s.Refresh(ctx, rawURL); err != nil {
					s.logger.Warn("background refresh failed", "url", rawURL, "error", err)
				}
			})
			return data, nil
		}
		s.logger.Warn("meta cache entry undecodable", "key", key)
	}

	return s.Refresh(ctx, rawURL)
}

// Refresh rebuilds the metadata entry for rawURL and writes it back. A failed
// scrape yields nil fields, not an error.
func (s *MetaService) Refresh(ctx context.Context, rawURL string) (domain.MetaData, error) {
	data := domain.MetaData{
		SourceURL:   rawURL,
		LastUpdated: s.now(),
	}

	if resource := s.findInternal(ctx, rawURL); resource != nil {
		rec := resource.Record
		if rec.Title != "" {
			data.OGTitle = &rec.Title
		}
		if rec.CoverURL != "" {
			data.OGImage = &rec.CoverURL
		}
		if rec.IconURL != "" {
			data.Logo = &rec.IconURL
		}
	}

	if data.OGTitle == nil || data.OGDescription == nil || data.OGImage == nil || data.Logo == nil {
		page, err := s.scraper.Scrape(ctx, rawURL)
		if err != nil {
			s.logger.Warn("scrape failed", "url", rawURL, "error", err)
		} else {
			if data.OGTitle == nil {
				data.OGTitle = page.Title
			}
			if data.OGDescription == nil {
				data.OGDescription = page.Description
			}
			if data.OGImage == nil {
				data.OGImage = page.Image
			}
			if data.Logo == nil {
				data.Logo = page.Logo
			}
		}
	}

	key := kv.Key("meta-data", normalize.URL(rawURL))
	encoded, err := json.Marshal(data)
	if err != nil {
		return data, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, encoded); err != nil {
		return data, fmt.Errorf("write %s: %w", key, err)
	}

	return data, nil
}

// RefreshAll re-resolves every cached metadata entry. Runs opportunistically
// on a schedule; per-URL failures are isolated.
func (s *MetaService) RefreshAll(ctx context.Context) error {
	keys, err := s.store.Keys(ctx, "meta-data")
	if err != nil {
		return fmt.Errorf("list meta keys: %w", err)
	}
	items, err := s.store.GetItems(ctx, keys)
	if err != nil {
		return fmt.Errorf("load meta entries: %w", err)
	}

	refreshed, failed := 0, 0
	for _, item := range items {
		var data domain.MetaData
		if err := json.Unmarshal(item.Value, &data); err != nil || data.SourceURL == "" {
			continue
		}
		if _, err := s.Refresh(ctx, data.SourceURL); err != nil {
			s.logger.Warn("refresh failed", "url", data.SourceURL, "error", err)
			failed++
			continue
		}
		refreshed++
	}

	s.logger.Info("meta refresh completed", "refreshed", refreshed, "failed", failed)
	return nil
}

// findInternal searches the resource cache for a record whose derived public
// URL or contact link matches rawURL.
func (s *MetaService) findInternal(ctx context.Context, rawURL string) *domain.Resource {
	keys, err := s.store.Keys(ctx, "resource")
	if err != nil {
		s.logger.Warn("resource scan failed", "error", err)
		return nil
	}
	items, err := s.store.GetItems(ctx, keys)
	if err != nil {
		s.logger.Warn("resource load failed", "error", err)
		return nil
	}

	for _, item := range items {
		var resource domain.Resource
		if err := json.Unmarshal(item.Value, &resource); err != nil {
			continue
		}
		rec := resource.Record

		if rec.ContentType != "" {
			pattern := fmt.Sprintf("/%s/%s_%s", strings.ToLower(rec.ContentType), normalize.Slug(rec.Title), rec.ID)
			if strings.Contains(rawURL, pattern) {
				return &resource
			}
		}

		for _, link := range []string{rec.WebsiteURL, rec.InstagramURL} {
			if link != "" && strings.Contains(rawURL, link) {
				return &resource
			}
		}
	}

	return nil
}
