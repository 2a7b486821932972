// Package normalize turns CMS identifiers, URLs, and titles into the stable
// string forms used as cache keys and URL path segments.
package normalize

import "strings"

// ID strips the dash separators from a CMS record id. Idempotent.
func ID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// URL reduces a URL to its cache-key form: the query string and fragment are
// dropped and path separators are escaped so equivalent URLs collapse to one
// key that is safe as a single path segment. Idempotent.
func URL(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "/", "_")
	return strings.ReplaceAll(raw, ":", "_")
}

// Slug converts a title into a URL path segment: lowercase, runs of
// non-alphanumeric characters collapsed to single dashes. Idempotent.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// WhatsappPhone strips the wa.me link prefix from a whatsapp contact field,
// leaving the bare phone number used as the subscription key.
func WhatsappPhone(link string) string {
	for _, prefix := range []string{"https://wa.me/", "http://wa.me/"} {
		if rest, ok := strings.CutPrefix(link, prefix); ok {
			return rest
		}
	}
	return link
}
