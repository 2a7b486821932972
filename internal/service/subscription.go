package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"contenthub/internal/domain"
	"contenthub/internal/normalize"
	"contenthub/internal/storage/kv"
)

// ErrInvalidSubscription marks a subscribe call missing its key field.
var ErrInvalidSubscription = errors.New("invalid subscription")

// SubscriptionService manages channel subscription records. Subscribing an
// existing key is an idempotent no-op: the stored subscription is not
// updated.
type SubscriptionService struct {
	store  Store
	logger *slog.Logger
}

func NewSubscriptionService(store Store, logger *slog.Logger) *SubscriptionService {
	return &SubscriptionService{store: store, logger: logger}
}

func (s *SubscriptionService) SubscribePush(ctx context.Context, sub domain.PushSubscription) error {
	if sub.Keys.Auth == "" || sub.Endpoint == "" {
		return fmt.Errorf("%w: push subscription requires endpoint and auth key", ErrInvalidSubscription)
	}
	return s.subscribe(ctx, kv.Key("subscription", "push", sub.Keys.Auth), sub)
}

func (s *SubscriptionService) SubscribeEmail(ctx context.Context, sub domain.EmailSubscription) error {
	if sub.Email == "" {
		return fmt.Errorf("%w: email subscription requires an address", ErrInvalidSubscription)
	}
	return s.subscribe(ctx, kv.Key("subscription", "email", sub.Email), sub)
}

func (s *SubscriptionService) SubscribeWhatsapp(ctx context.Context, sub domain.WhatsappSubscription) error {
	sub.Phone = normalize.WhatsappPhone(sub.Phone)
	if sub.Phone == "" {
		return fmt.Errorf("%w: whatsapp subscription requires a phone number", ErrInvalidSubscription)
	}
	return s.subscribe(ctx, kv.Key("subscription", "whatsapp", sub.Phone), sub)
}

func (s *SubscriptionService) UnsubscribePush(ctx context.Context, authKey string) (bool, error) {
	return s.store.Delete(ctx, kv.Key("subscription", "push", authKey))
}

func (s *SubscriptionService) UnsubscribeWhatsapp(ctx context.Context, phone string) (bool, error) {
	return s.store.Delete(ctx, kv.Key("subscription", "whatsapp", normalize.WhatsappPhone(phone)))
}

// PushSubscriptions returns every stored push subscription.
func (s *SubscriptionService) PushSubscriptions(ctx context.Context) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	if err := collectSubscriptions(ctx, s.store, "push", &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *SubscriptionService) subscribe(ctx context.Context, key string, sub any) error {
	if _, err := s.store.Get(ctx, key); err == nil {
		return nil
	} else if !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("check %s: %w", key, err)
	}

	encoded, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	s.logger.Info("subscription created", "key", key)
	return nil
}
