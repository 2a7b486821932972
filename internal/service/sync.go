package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contenthub/internal/domain"
	"contenthub/internal/normalize"
	"contenthub/internal/storage/kv"
)

// SyncService mirrors every CMS database into the cache. Each resource type
// syncs independently: one type's fetch failure is logged and skipped, the
// others proceed. A crash mid-run leaves a partially-updated cache that the
// next scheduled run corrects.
type SyncService struct {
	source    Source
	store     Store
	databases map[domain.ResourceType]string
	logger    *slog.Logger
}

func NewSyncService(
	source Source,
	store Store,
	databases map[domain.ResourceType]string,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		source:    source,
		store:     store,
		databases: databases,
		logger:    logger.With("task", "sync:resource"),
	}
}

func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	stats := &domain.SyncStats{}

	var prospects []domain.Record
	for _, typ := range domain.ResourceTypes {
		databaseID, ok := s.databases[typ]
		if !ok || databaseID == "" {
			s.logger.Debug("no database configured", "type", typ)
			continue
		}

		records, err := s.source.QueryAll(ctx, databaseID)
		if err != nil {
			s.logger.Warn("source fetch failed", "type", typ, "error", err)
			stats.TypesFailed++
			continue
		}

		stats.Fetched += len(records)
		s.upsertAll(ctx, typ, records, stats)

		if typ == domain.ResourceProspect {
			prospects = records
		}
	}

	s.seedSubscriptions(ctx, prospects, stats)

	stats.Duration = time.Since(startTime)
	s.logger.Info("sync completed",
		"fetched", stats.Fetched,
		"created", stats.Created,
		"updated", stats.Updated,
		"errors", stats.Errors,
		"types_failed", stats.TypesFailed,
		"subscribed", stats.Subscribed,
		"duration", stats.Duration,
	)

	return stats, nil
}

// upsertAll fans out one goroutine per record; completion order is undefined
// and per-record failures only bump the error counter.
func (s *SyncService) upsertAll(ctx context.Context, typ domain.ResourceType, records []domain.Record, stats *domain.SyncStats) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, record := range records {
		wg.Add(1)
		go func(record domain.Record) {
			defer wg.Done()

			created, err := s.upsert(ctx, typ, record)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				s.logger.Warn("upsert failed", "type", typ, "id", record.ID, "error", err)
				stats.Errors++
			case created:
				stats.Created++
			default:
				stats.Updated++
			}
		}(record)
	}
	wg.Wait()
}

// upsert overwrites the cached record while preserving the locally-owned
// notification flag. Read-modify-write is not atomic across the cache; two
// overlapping runs are last-write-wins, corrected within one interval.
func (s *SyncService) upsert(ctx context.Context, typ domain.ResourceType, record domain.Record) (bool, error) {
	key := kv.Key("resource", string(typ), normalize.ID(record.ID))

	resource := domain.Resource{Type: typ, NotificationStatus: false}
	raw, err := s.store.Get(ctx, key)
	created := errors.Is(err, kv.ErrNotFound)
	if err != nil && !created {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err == nil {
		if err := json.Unmarshal(raw, &resource); err != nil {
			return false, fmt.Errorf("decode %s: %w", key, err)
		}
	}

	resource.Type = typ
	resource.Record = record

	encoded, err := json.Marshal(resource)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, encoded); err != nil {
		return false, fmt.Errorf("write %s: %w", key, err)
	}

	return created, nil
}

// seedSubscriptions derives email and whatsapp subscriptions from prospect
// contact fields. Seeding is create-if-absent: an existing subscription is
// never overwritten.
func (s *SyncService) seedSubscriptions(ctx context.Context, prospects []domain.Record, stats *domain.SyncStats) {
	for _, prospect := range prospects {
		if prospect.Email != "" {
			sub := domain.EmailSubscription{Name: prospect.Title, Email: prospect.Email}
			key := kv.Key("subscription", "email", prospect.Email)
			if created, err := s.createIfAbsent(ctx, key, sub); err != nil {
				s.logger.Warn("seed email subscription failed", "id", prospect.ID, "error", err)
				stats.Errors++
			} else if created {
				stats.Subscribed++
			}
		}

		if prospect.WhatsappURL != "" {
			phone := normalize.WhatsappPhone(prospect.WhatsappURL)
			sub := domain.WhatsappSubscription{Name: prospect.Title, Phone: phone}
			key := kv.Key("subscription", "whatsapp", phone)
			if created, err := s.createIfAbsent(ctx, key, sub); err != nil {
				s.logger.Warn("seed whatsapp subscription failed", "id", prospect.ID, "error", err)
				stats.Errors++
			} else if created {
				stats.Subscribed++
			}
		}
	}
}

func (s *SyncService) createIfAbsent(ctx context.Context, key string, value any) (bool, error) {
	_, err := s.store.Get(ctx, key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return false, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := s.store.Set(ctx, key, encoded); err != nil {
		return false, err
	}
	return true, nil
}
