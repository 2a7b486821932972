package channel

import (
	"context"
	"time"

	"contenthub/internal/domain"
)

// Push broadcasts one message to a batch of push subscriptions.
type Push struct {
	d *Dispatcher
}

func NewPush(d *Dispatcher) *Push {
	return &Push{d: d}
}

type pushEnvelope struct {
	Message       domain.PushMessage        `json:"message"`
	Subscriptions []domain.PushSubscription `json:"subscriptions"`
	SentAt        time.Time                 `json:"sentAt"`
}

func (p *Push) Send(ctx context.Context, msg domain.PushMessage, subs []domain.PushSubscription) error {
	if len(subs) == 0 {
		return nil
	}
	return p.d.publish(ctx, RoutePush, pushEnvelope{
		Message:       msg,
		Subscriptions: subs,
		SentAt:        time.Now().UTC(),
	})
}

// Email hands template renders to the mail transport. Broker-level failures
// surface as ErrTransport so callers can tell them from content problems.
type Email struct {
	d *Dispatcher
}

func NewEmail(d *Dispatcher) *Email {
	return &Email{d: d}
}

type emailEnvelope struct {
	Template string                     `json:"template"`
	Data     []domain.EmailTemplateData `json:"data"`
	SentAt   time.Time                  `json:"sentAt"`
}

func (e *Email) Send(ctx context.Context, template string, data []domain.EmailTemplateData) error {
	if len(data) == 0 {
		return nil
	}
	return e.d.publish(ctx, RouteEmail, emailEnvelope{
		Template: template,
		Data:     data,
		SentAt:   time.Now().UTC(),
	})
}

// Whatsapp delivers per-recipient messages best-effort: every recipient is
// attempted and failures are aggregated, never short-circuited.
type Whatsapp struct {
	d *Dispatcher
}

func NewWhatsapp(d *Dispatcher) *Whatsapp {
	return &Whatsapp{d: d}
}

func (w *Whatsapp) Send(ctx context.Context, msgs []domain.WhatsappMessage) error {
	outcomes := SettleAll(ctx, msgs, func(ctx context.Context, msg domain.WhatsappMessage) error {
		return w.d.publish(ctx, RouteWhatsapp, msg)
	})
	for _, o := range outcomes {
		if o.Err != nil {
			w.d.logger.Warn("whatsapp dispatch failed", "to", o.Item.To, "error", o.Err)
		}
	}
	return SettleErr(outcomes)
}

// Social posts to the configured social page.
type Social struct {
	d *Dispatcher
}

func NewSocial(d *Dispatcher) *Social {
	return &Social{d: d}
}

func (s *Social) Post(ctx context.Context, posts []domain.SocialPost) error {
	outcomes := SettleAll(ctx, posts, func(ctx context.Context, post domain.SocialPost) error {
		return s.d.publish(ctx, RouteSocial, post)
	})
	return SettleErr(outcomes)
}
