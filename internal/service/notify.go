package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"contenthub/internal/domain"
	"contenthub/internal/normalize"
	"contenthub/internal/storage/kv"
)

// Content types with their own channel routing.
const (
	contentTypeEpisode = "Episode"
	contentTypeBlog    = "Blog"
)

// SiteConfig carries the site facts baked into outbound messages.
type SiteConfig struct {
	URL              string
	CDNURL           string
	PlaceholderImage string
}

// NotifyService scans the cache for newly published content and asset records
// that have not been notified yet, dispatches to every applicable channel,
// and marks each record notified. Records are processed concurrently and in
// isolation: one record's failure never blocks another.
type NotifyService struct {
	store    Store
	push     PushSender
	email    EmailSender
	whatsapp WhatsappSender
	social   SocialPoster
	site     SiteConfig
	logger   *slog.Logger
}

func NewNotifyService(
	store Store,
	push PushSender,
	email EmailSender,
	whatsapp WhatsappSender,
	social SocialPoster,
	site SiteConfig,
	logger *slog.Logger,
) *NotifyService {
	return &NotifyService{
		store:    store,
		push:     push,
		email:    email,
		whatsapp: whatsapp,
		social:   social,
		site:     site,
		logger:   logger.With("task", "notify:content"),
	}
}

// runSubscriptions holds the per-run snapshot of subscription lists, loaded
// lazily on first need and reused for every record in the run. A subscriber
// added mid-run is picked up on the next scheduled run.
type runSubscriptions struct {
	push     []domain.PushSubscription
	email    []domain.EmailSubscription
	whatsapp []domain.WhatsappSubscription
}

func (s *NotifyService) Notify(ctx context.Context) (*domain.NotifyStats, error) {
	startTime := time.Now()
	stats := &domain.NotifyStats{}

	var keys []string
	for _, typ := range []domain.ResourceType{domain.ResourceContent, domain.ResourceAsset} {
		typeKeys, err := s.store.Keys(ctx, kv.Key("resource", string(typ)))
		if err != nil {
			return nil, fmt.Errorf("list %s keys: %w", typ, err)
		}
		keys = append(keys, typeKeys...)
	}

	items, err := s.store.GetItems(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load resources: %w", err)
	}
	stats.Scanned = len(items)

	type eligible struct {
		key      string
		resource domain.Resource
	}
	var pending []eligible
	for _, item := range items {
		var resource domain.Resource
		if err := json.Unmarshal(item.Value, &resource); err != nil {
			s.logger.Warn("skipping undecodable resource", "key", item.Key, "error", err)
			continue
		}
		if resource.NotificationStatus || resource.Record.Status != domain.StatusPublish {
			continue
		}
		pending = append(pending, eligible{key: item.Key, resource: resource})
	}
	stats.Eligible = len(pending)

	if len(pending) == 0 {
		stats.Duration = time.Since(startTime)
		return stats, nil
	}

	subs, err := s.loadSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, p := range pending {
		wg.Add(1)
		go func(p eligible) {
			defer wg.Done()

			err := s.notifyOne(ctx, p.key, p.resource, subs)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("record notification failed", "key", p.key, "error", err)
				stats.Errors++
				return
			}
			stats.Notified++
		}(p)
	}
	wg.Wait()

	stats.Duration = time.Since(startTime)
	s.logger.Info("notify completed",
		"scanned", stats.Scanned,
		"eligible", stats.Eligible,
		"notified", stats.Notified,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *NotifyService) loadSubscriptions(ctx context.Context) (*runSubscriptions, error) {
	subs := &runSubscriptions{}

	if err := collectSubscriptions(ctx, s.store, "push", &subs.push); err != nil {
		return nil, err
	}
	if err := collectSubscriptions(ctx, s.store, "email", &subs.email); err != nil {
		return nil, err
	}
	if err := collectSubscriptions(ctx, s.store, "whatsapp", &subs.whatsapp); err != nil {
		return nil, err
	}

	return subs, nil
}

func collectSubscriptions[T any](ctx context.Context, store Store, channelName string, out *[]T) error {
	keys, err := store.Keys(ctx, kv.Key("subscription", channelName))
	if err != nil {
		return fmt.Errorf("list %s subscriptions: %w", channelName, err)
	}
	items, err := store.GetItems(ctx, keys)
	if err != nil {
		return fmt.Errorf("load %s subscriptions: %w", channelName, err)
	}
	for _, item := range items {
		var sub T
		if err := json.Unmarshal(item.Value, &sub); err != nil {
			continue
		}
		*out = append(*out, sub)
	}
	return nil
}

// notifyOne dispatches every channel applicable to the record's content type,
// then flips the notification flag. Individual channel failures are logged
// and do not prevent the flag from being set; only a failed flag write leaves
// the record eligible for the next run.
func (s *NotifyService) notifyOne(ctx context.Context, key string, resource domain.Resource, subs *runSubscriptions) error {
	rec := resource.Record
	contentType := rec.ContentType

	title := fmt.Sprintf("New %s release | %s", contentType, rec.Title)
	description := rec.Title
	if rec.Excerpt != "" {
		description = firstSentence(rec.Excerpt) + "..."
	}
	contentPath := fmt.Sprintf("/%s/%s_%s", strings.ToLower(contentType), normalize.Slug(rec.Title), rec.ID)
	image := s.imageURL(rec.CoverURL)

	s.logger.Info("publishing new content", "type", contentType, "title", rec.Title)

	if err := s.push.Send(ctx, domain.PushMessage{
		Title: title,
		Body:  description,
		URL:   contentPath + "?ref=push",
	}, subs.push); err != nil {
		s.logger.Warn("push dispatch failed", "key", key, "error", err)
	}

	if contentType == contentTypeEpisode || contentType == contentTypeBlog {
		data := make([]domain.EmailTemplateData, 0, len(subs.email))
		for _, sub := range subs.email {
			data = append(data, domain.EmailTemplateData{
				ToPersonName: sub.Name,
				ToEmail:      sub.Email,
				EmailSubject: title,
				ContentTitle: description,
				ContentImage: image,
				ContentURL:   s.site.URL + contentPath,
			})
		}
		// Email transport failures are swallowed: the rest of the record's
		// channels and the flag write still proceed.
		if err := s.email.Send(ctx, "content", data); err != nil {
			s.logger.Warn("email dispatch failed", "key", key, "error", err)
		}
	}

	if contentType == contentTypeEpisode {
		text := fmt.Sprintf("%s\n\n%s\n\nRead More here %s%s?ref=whatsapp", title, description, s.site.URL, contentPath)

		if err := s.social.Post(ctx, []domain.SocialPost{
			{Data: domain.MessagePayload{Asset: image, Text: text}},
		}); err != nil {
			s.logger.Warn("social post failed", "key", key, "error", err)
		}

		msgs := make([]domain.WhatsappMessage, 0, len(subs.whatsapp))
		for _, sub := range subs.whatsapp {
			msgs = append(msgs, domain.WhatsappMessage{
				To:   sub.Phone,
				Data: domain.MessagePayload{Asset: image, Text: text},
			})
		}
		if err := s.whatsapp.Send(ctx, msgs); err != nil {
			s.logger.Warn("whatsapp broadcast failed", "key", key, "error", err)
		}
	}

	resource.NotificationStatus = true
	encoded, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("mark notified %s: %w", key, err)
	}

	return nil
}

func (s *NotifyService) imageURL(coverURL string) string {
	id := s.site.PlaceholderImage
	if coverURL != "" {
		id = lastSegment(coverURL)
	}
	return fmt.Sprintf("%s/media/image/f_jpeg&fit_cover&s_1200x630/%s", s.site.CDNURL, id)
}

func lastSegment(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

// firstSentence truncates text at its first sentence boundary.
func firstSentence(text string) string {
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i]
	}
	return strings.TrimSuffix(text, ".")
}
