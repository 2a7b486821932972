package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"contenthub/internal/domain"
	"contenthub/internal/service/mocks"
	"contenthub/internal/storage/kv"
)

type NotifyServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	store    *kv.Memory
	push     *mocks.MockPushSender
	email    *mocks.MockEmailSender
	whatsapp *mocks.MockWhatsappSender
	social   *mocks.MockSocialPoster

	service *NotifyService
}

func (s *NotifyServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.store = kv.NewMemory()
	s.push = mocks.NewMockPushSender(s.ctrl)
	s.email = mocks.NewMockEmailSender(s.ctrl)
	s.whatsapp = mocks.NewMockWhatsappSender(s.ctrl)
	s.social = mocks.NewMockSocialPoster(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewNotifyService(
		s.store,
		s.push,
		s.email,
		s.whatsapp,
		s.social,
		SiteConfig{
			URL:              "https://example.com",
			CDNURL:           "https://cdn.example.com",
			PlaceholderImage: "placeholder.jpg",
		},
		logger,
	)
}

func (s *NotifyServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestNotifyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotifyServiceTestSuite))
}

func (s *NotifyServiceTestSuite) putResource(typ domain.ResourceType, notified bool, rec domain.Record) {
	resource := domain.Resource{Type: typ, NotificationStatus: notified, Record: rec}
	encoded, err := json.Marshal(resource)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Set(context.Background(), kv.Key("resource", string(typ), rec.ID), encoded))
}

func (s *NotifyServiceTestSuite) putSubscription(channelName, id string, sub any) {
	encoded, err := json.Marshal(sub)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Set(context.Background(), kv.Key("subscription", channelName, id), encoded))
}

func (s *NotifyServiceTestSuite) notificationStatus(typ domain.ResourceType, id string) bool {
	raw, err := s.store.Get(context.Background(), kv.Key("resource", string(typ), id))
	s.Require().NoError(err)
	var resource domain.Resource
	s.Require().NoError(json.Unmarshal(raw, &resource))
	return resource.NotificationStatus
}

func (s *NotifyServiceTestSuite) TestNotify_EpisodeHitsEveryChannel() {
	ctx := context.Background()

	s.putResource(domain.ResourceContent, false, domain.Record{
		ID:          "ep1",
		Title:       "Deep Dive",
		Status:      domain.StatusPublish,
		ContentType: "Episode",
		Excerpt:     "We go deep. Then deeper still.",
		CoverURL:    "https://files.example.com/media/cover-ep1.png",
	})
	s.putSubscription("push", "auth1", domain.PushSubscription{Endpoint: "https://push.example.com/1"})
	s.putSubscription("email", "ada@example.com", domain.EmailSubscription{Name: "Ada", Email: "ada@example.com"})
	s.putSubscription("whatsapp", "628123456789", domain.WhatsappSubscription{Name: "Ada", Phone: "628123456789"})

	s.push.EXPECT().Send(ctx, gomock.Any(), gomock.Len(1)).DoAndReturn(
		func(_ context.Context, msg domain.PushMessage, _ []domain.PushSubscription) error {
			s.Equal("New Episode release | Deep Dive", msg.Title)
			s.Equal("We go deep...", msg.Body)
			s.Equal("/episode/deep-dive_ep1?ref=push", msg.URL)
			return nil
		})
	s.email.EXPECT().Send(ctx, "content", gomock.Len(1)).DoAndReturn(
		func(_ context.Context, _ string, data []domain.EmailTemplateData) error {
			s.Equal("ada@example.com", data[0].ToEmail)
			s.Equal("https://example.com/episode/deep-dive_ep1", data[0].ContentURL)
			s.Equal("https://cdn.example.com/media/image/f_jpeg&fit_cover&s_1200x630/cover-ep1.png", data[0].ContentImage)
			return nil
		})
	s.social.EXPECT().Post(ctx, gomock.Len(1)).Return(nil)
	s.whatsapp.EXPECT().Send(ctx, gomock.Len(1)).DoAndReturn(
		func(_ context.Context, msgs []domain.WhatsappMessage) error {
			s.Equal("628123456789", msgs[0].To)
			s.Contains(msgs[0].Data.Text, "?ref=whatsapp")
			return nil
		})

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Notified)
	s.True(s.notificationStatus(domain.ResourceContent, "ep1"))
}

func (s *NotifyServiceTestSuite) TestNotify_PhotoOnlyPushes() {
	ctx := context.Background()

	s.putResource(domain.ResourceAsset, false, domain.Record{
		ID:          "ph1",
		Title:       "Gallery Drop",
		Status:      domain.StatusPublish,
		ContentType: "Photo",
	})
	s.putSubscription("push", "auth1", domain.PushSubscription{Endpoint: "https://push.example.com/1"})

	s.push.EXPECT().Send(ctx, gomock.Any(), gomock.Any()).Return(nil)

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Notified)
}

func (s *NotifyServiceTestSuite) TestNotify_AtMostOnce() {
	ctx := context.Background()

	s.putResource(domain.ResourceContent, false, domain.Record{
		ID: "ep1", Title: "Once", Status: domain.StatusPublish, ContentType: "Photo",
	})

	s.push.EXPECT().Send(ctx, gomock.Any(), gomock.Any()).Return(nil).Times(1)

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Notified)

	// Second run sees the flag and dispatches nothing.
	stats, err = s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Scanned)
	s.Equal(0, stats.Eligible)
	s.Equal(0, stats.Notified)
}

func (s *NotifyServiceTestSuite) TestNotify_EmptyExcerptFallsBackToTitle() {
	ctx := context.Background()

	s.putResource(domain.ResourceContent, false, domain.Record{
		ID: "p1", Title: "Wordless Gallery", Status: domain.StatusPublish, ContentType: "Photo",
	})

	s.push.EXPECT().Send(ctx, gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg domain.PushMessage, _ []domain.PushSubscription) error {
			s.Equal("Wordless Gallery", msg.Body)
			return nil
		})

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Notified)
}

func (s *NotifyServiceTestSuite) TestNotify_SkipsUnpublished() {
	ctx := context.Background()

	s.putResource(domain.ResourceContent, false, domain.Record{
		ID: "d1", Title: "Still Draft", Status: "Draft", ContentType: "Blog",
	})

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Scanned)
	s.Equal(0, stats.Eligible)
	s.False(s.notificationStatus(domain.ResourceContent, "d1"))
}

func (s *NotifyServiceTestSuite) TestNotify_EmailFailureStillMarksNotified() {
	ctx := context.Background()

	s.putResource(domain.ResourceContent, false, domain.Record{
		ID: "b1", Title: "Broken Mail", Status: domain.StatusPublish, ContentType: "Blog",
	})

	s.push.EXPECT().Send(ctx, gomock.Any(), gomock.Any()).Return(nil)
	s.email.EXPECT().Send(ctx, "content", gomock.Any()).Return(errors.New("smtp down"))

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Notified)
	s.Equal(0, stats.Errors)
	s.True(s.notificationStatus(domain.ResourceContent, "b1"), "channel failure must not leave the record eligible again")
}

func (s *NotifyServiceTestSuite) TestNotify_RecordsIsolated() {
	ctx := context.Background()

	s.putResource(domain.ResourceContent, false, domain.Record{
		ID: "a1", Title: "Alpha", Status: domain.StatusPublish, ContentType: "Photo",
	})
	s.putResource(domain.ResourceContent, false, domain.Record{
		ID: "b2", Title: "Beta", Status: domain.StatusPublish, ContentType: "Photo",
	})

	s.push.EXPECT().Send(ctx, gomock.Any(), gomock.Any()).Return(nil).Times(2)

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Notified)
	s.True(s.notificationStatus(domain.ResourceContent, "a1"))
	s.True(s.notificationStatus(domain.ResourceContent, "b2"))
}

func (s *NotifyServiceTestSuite) TestNotify_RepublicationDoesNotRenotify() {
	ctx := context.Background()

	// Already notified once; a later re-publish keeps the flag.
	s.putResource(domain.ResourceContent, true, domain.Record{
		ID: "ep1", Title: "Evergreen", Status: domain.StatusPublish, ContentType: "Episode",
	})

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(0, stats.Eligible)
}

func (s *NotifyServiceTestSuite) TestNotify_NothingPendingLoadsNoSubscriptions() {
	ctx := context.Background()

	stats, err := s.service.Notify(ctx)
	s.Require().NoError(err)
	s.Equal(0, stats.Scanned)
	s.Equal(0, stats.Notified)
}
