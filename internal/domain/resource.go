package domain

import "time"

// ResourceType identifies one of the CMS databases mirrored into the cache.
type ResourceType string

const (
	ResourceProspect ResourceType = "prospect"
	ResourceClient   ResourceType = "client"
	ResourceProject  ResourceType = "project"
	ResourceContent  ResourceType = "content"
	ResourceAsset    ResourceType = "asset"
)

// ResourceTypes is the closed set of synchronized resource types.
var ResourceTypes = []ResourceType{
	ResourceProspect,
	ResourceClient,
	ResourceProject,
	ResourceContent,
	ResourceAsset,
}

// Upstream status values that make a record publicly visible.
const (
	StatusPublish = "Publish"
	StatusRelease = "Release"
)

// Record is the typed projection of one CMS page, parsed at the source
// boundary. Fields that a given resource type does not carry stay zero.
type Record struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status,omitempty"`
	ContentType  string    `json:"contentType,omitempty"` // Episode, Blog, Photo, Video
	Excerpt      string    `json:"excerpt,omitempty"`
	CoverURL     string    `json:"coverUrl,omitempty"`
	IconURL      string    `json:"iconUrl,omitempty"`
	Email        string    `json:"email,omitempty"`
	WhatsappURL  string    `json:"whatsappUrl,omitempty"`
	WebsiteURL   string    `json:"websiteUrl,omitempty"`
	InstagramURL string    `json:"instagramUrl,omitempty"`
	PublishedAt  time.Time `json:"publishedAt,omitzero"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	LastEditedAt time.Time `json:"lastEditedAt,omitzero"`
}

// Resource wraps one CMS record with synchronization metadata. At most one
// Resource exists per (type, normalized id); NotificationStatus is owned by
// the publish notifier and survives record refreshes.
type Resource struct {
	Type               ResourceType `json:"type"`
	NotificationStatus bool         `json:"notificationStatus"`
	Record             Record       `json:"record"`
}

// MetaData holds cached link-preview facts for a normalized URL. Nil fields
// are the documented "unknown" state, not an error.
type MetaData struct {
	OGTitle       *string   `json:"ogTitle"`
	OGDescription *string   `json:"ogDescription"`
	OGImage       *string   `json:"ogImage"`
	Logo          *string   `json:"logo"`
	SourceURL     string    `json:"sourceUrl,omitempty"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// SyncStats holds statistics about one synchronizer run.
type SyncStats struct {
	Fetched     int
	Created     int
	Updated     int
	Errors      int
	TypesFailed int
	Subscribed  int
	Duration    time.Duration
}

// NotifyStats holds statistics about one notifier run.
type NotifyStats struct {
	Scanned  int
	Eligible int
	Notified int
	Errors   int
	Duration time.Duration
}
