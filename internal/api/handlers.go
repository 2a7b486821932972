package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"contenthub/internal/domain"
	"contenthub/internal/normalize"
	"contenthub/internal/service"
	"contenthub/internal/storage/kv"
)

// contentCacheControl lets the CDN serve list and detail responses for five
// minutes and revalidate in the background for another hour.
const contentCacheControl = "public, max-age=300, stale-while-revalidate=3600"

// contentClass maps one public path segment to the cached resource namespace
// it projects, the content type it filters on, and the upstream status that
// makes a record visible. Authored content goes live on Publish; media assets
// go live on Release.
type contentClass struct {
	resource    domain.ResourceType
	contentType string
	status      string
}

var contentClasses = map[string]contentClass{
	"episode": {domain.ResourceContent, "Episode", domain.StatusPublish},
	"blog":    {domain.ResourceContent, "Blog", domain.StatusPublish},
	"photo":   {domain.ResourceAsset, "Photo", domain.StatusRelease},
	"video":   {domain.ResourceAsset, "Video", domain.StatusRelease},
}

type contentItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	IconURL     string    `json:"iconUrl,omitempty"`
	ContentType string    `json:"contentType"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

func toContentItem(rec domain.Record) contentItem {
	return contentItem{
		ID:          rec.ID,
		Title:       rec.Title,
		Slug:        normalize.Slug(rec.Title) + "_" + rec.ID,
		Excerpt:     rec.Excerpt,
		CoverURL:    rec.CoverURL,
		IconURL:     rec.IconURL,
		ContentType: rec.ContentType,
		PublishedAt: rec.PublishedAt,
	}
}

func (s *Server) internalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Some Unknown Error Found"})
}

func (s *Server) handleListContent(c *gin.Context) {
	class, ok := contentClasses[c.Param("content")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown content type"})
		return
	}

	records, err := s.visibleRecords(c, class)
	if err != nil {
		s.logger.Error("content listing failed", "error", err)
		s.internalError(c)
		return
	}

	items := make([]contentItem, 0, len(records))
	for _, rec := range records {
		if rec.ContentType == class.contentType {
			items = append(items, toContentItem(rec))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	c.Header("Cache-Control", contentCacheControl)
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) handleGetContent(c *gin.Context) {
	class, ok := contentClasses[c.Param("content")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown content type"})
		return
	}

	slug := c.Param("slug")
	i := strings.LastIndex(slug, "_")
	if i < 0 || i == len(slug)-1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed slug"})
		return
	}
	id := normalize.ID(slug[i+1:])

	raw, err := s.store.Get(c.Request.Context(), kv.Key("resource", string(class.resource), id))
	if errors.Is(err, kv.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}
	if err != nil {
		s.logger.Error("content read failed", "id", id, "error", err)
		s.internalError(c)
		return
	}

	var resource domain.Resource
	if err := json.Unmarshal(raw, &resource); err != nil {
		s.logger.Error("content entry undecodable", "id", id, "error", err)
		s.internalError(c)
		return
	}
	rec := resource.Record
	if rec.Status != class.status || rec.ContentType != class.contentType {
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
		return
	}

	c.Header("Cache-Control", contentCacheControl)
	c.JSON(http.StatusOK, gin.H{"data": toContentItem(rec)})
}

// visibleRecords loads every record of the class's namespace that carries its
// visible status.
func (s *Server) visibleRecords(c *gin.Context, class contentClass) ([]domain.Record, error) {
	ctx := c.Request.Context()

	keys, err := s.store.Keys(ctx, kv.Key("resource", string(class.resource)))
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(ctx, keys)
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		var resource domain.Resource
		if err := json.Unmarshal(item.Value, &resource); err != nil {
			s.logger.Warn("skipping undecodable resource", "key", item.Key, "error", err)
			continue
		}
		if resource.Record.Status == class.status {
			records = append(records, resource.Record)
		}
	}
	return records, nil
}

func (s *Server) handleMeta(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter required"})
		return
	}

	data, err := s.meta.Resolve(c.Request.Context(), rawURL)
	if err != nil {
		s.logger.Error("meta resolve failed", "url", rawURL, "error", err)
		s.internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (s *Server) handleSubscribePush(c *gin.Context) {
	var sub domain.PushSubscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed subscription"})
		return
	}
	s.subscribe(c, s.subscriptions.SubscribePush(c.Request.Context(), sub))
}

func (s *Server) handleSubscribeEmail(c *gin.Context) {
	var sub domain.EmailSubscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed subscription"})
		return
	}
	s.subscribe(c, s.subscriptions.SubscribeEmail(c.Request.Context(), sub))
}

func (s *Server) handleSubscribeWhatsapp(c *gin.Context) {
	var sub domain.WhatsappSubscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed subscription"})
		return
	}
	s.subscribe(c, s.subscriptions.SubscribeWhatsapp(c.Request.Context(), sub))
}

func (s *Server) subscribe(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error("subscribe failed", "error", err)
		s.internalError(c)
	default:
		c.JSON(http.StatusCreated, gin.H{"success": true})
	}
}

func (s *Server) handleUnsubscribePush(c *gin.Context) {
	removed, err := s.subscriptions.UnsubscribePush(c.Request.Context(), c.Param("id"))
	s.unsubscribe(c, removed, err)
}

func (s *Server) handleUnsubscribeWhatsapp(c *gin.Context) {
	removed, err := s.subscriptions.UnsubscribeWhatsapp(c.Request.Context(), c.Param("id"))
	s.unsubscribe(c, removed, err)
}

func (s *Server) unsubscribe(c *gin.Context, removed bool, err error) {
	switch {
	case err != nil:
		s.logger.Error("unsubscribe failed", "error", err)
		s.internalError(c)
	case !removed:
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (s *Server) handlePushSend(c *gin.Context) {
	var msg domain.PushMessage
	if err := c.ShouldBindJSON(&msg); err != nil || msg.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed push message"})
		return
	}

	subs, err := s.subscriptions.PushSubscriptions(c.Request.Context())
	if err != nil {
		s.logger.Error("subscription listing failed", "error", err)
		s.internalError(c)
		return
	}

	if err := s.push.Send(c.Request.Context(), msg, subs); err != nil {
		s.logger.Error("push broadcast failed", "error", err)
		s.internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "sent": len(subs)})
}
