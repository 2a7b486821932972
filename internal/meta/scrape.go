// Package meta extracts link-preview facts from live pages: Open Graph tags
// first, then document fallbacks, then JSON-LD.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageData holds what a scrape could determine; nil means unknown.
type PageData struct {
	Title       *string
	Description *string
	Image       *string
	Logo        *string
}

// Scraper fetches and parses pages over plain HTTP.
type Scraper struct {
	client *http.Client
	logger *slog.Logger
}

// NewScraper wires an HTTP client; a nil client gets a 20s timeout default.
func NewScraper(client *http.Client, logger *slog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Scraper{client: client, logger: logger}
}

// Scrape fetches pageURL and extracts its metadata.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (PageData, error) {
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return PageData{}, err
	}
	return extract(doc, pageURL), nil
}

func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

type jsonLD struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Image       any    `json:"image"`
}

func extract(doc *goquery.Document, baseURL string) PageData {
	title := firstNonEmpty(
		attr(doc, `meta[property="og:title"]`, "content"),
		text(doc, "title"),
		text(doc, "h1"),
	)
	description := firstNonEmpty(
		attr(doc, `meta[property="og:description"]`, "content"),
		attr(doc, `meta[name="description"]`, "content"),
		text(doc, "article p"),
	)
	image := firstNonEmpty(
		attr(doc, `meta[property="og:image"]`, "content"),
		attr(doc, `link[rel="image_src"]`, "href"),
		attr(doc, "img", "src"),
	)

	// JSON-LD fills whatever the tags left empty.
	if raw := text(doc, `script[type="application/ld+json"]`); raw != "" {
		var ld jsonLD
		if err := json.Unmarshal([]byte(raw), &ld); err == nil {
			title = firstNonEmpty(title, ld.Headline)
			description = firstNonEmpty(description, ld.Description)
			image = firstNonEmpty(image, ldImage(ld.Image))
		}
	}

	logo := ""
	rawIcon := firstNonEmpty(
		attr(doc, `link[rel="icon"]`, "href"),
		attr(doc, `link[rel="shortcut icon"]`, "href"),
	)
	if rawIcon != "" {
		logo = resolveRef(baseURL, rawIcon)
	}

	return PageData{
		Title:       ptrOrNil(title),
		Description: ptrOrNil(description),
		Image:       ptrOrNil(image),
		Logo:        ptrOrNil(logo),
	}
}

func attr(doc *goquery.Document, selector, name string) string {
	value, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(value)
}

func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func ldImage(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func resolveRef(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
