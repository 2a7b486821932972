package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"contenthub/internal/domain"
	"contenthub/internal/meta"
	"contenthub/internal/storage/kv"
)

// Store is the namespaced key-value cache shared by all services.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	GetItems(ctx context.Context, keys []string) ([]kv.Item, error)
}

// Source produces every record of one CMS database.
type Source interface {
	QueryAll(ctx context.Context, databaseID string) ([]domain.Record, error)
}

type PushSender interface {
	Send(ctx context.Context, msg domain.PushMessage, subs []domain.PushSubscription) error
}

type EmailSender interface {
	Send(ctx context.Context, template string, data []domain.EmailTemplateData) error
}

type WhatsappSender interface {
	Send(ctx context.Context, msgs []domain.WhatsappMessage) error
}

type SocialPoster interface {
	Post(ctx context.Context, posts []domain.SocialPost) error
}

// Scraper retrieves link-preview facts from a live page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (meta.PageData, error)
}

// BackgroundRunner submits a detached task the caller does not wait for.
type BackgroundRunner interface {
	Go(name string, fn func(ctx context.Context))
}
