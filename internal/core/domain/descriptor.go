package domain

import (
	"errors"
	"path"
	"strings"
)

// UnresolvedID is the sentinel publication id for requests that could not be
// mapped to a publication.
const UnresolvedID = -1

// ErrNoPublication is returned when no publication can be derived from the
// request path (empty or root path). This is an expected, recoverable
// condition, not a provider failure.
var ErrNoPublication = errors.New("no publication found for path")

// PublicationDescriptor identifies the publication a request belongs to.
// This is the core domain model - it has no external dependencies.
type PublicationDescriptor struct {
	// ID is the publication item id. UnresolvedID (-1) means the request
	// could not be mapped to a publication.
	ID int

	// PublicationURL is the canonical URL prefix of the publication.
	// Once ID > 0 this is a stable, case-consistent path segment and is
	// used as the stub cache key.
	PublicationURL string

	// ImageURL is the URL prefix for binary/image assets of the publication.
	ImageURL string
}

// EmptyDescriptor returns the ephemeral descriptor for unresolvable requests.
// It must never be stored in the session or the stub cache.
func EmptyDescriptor() *PublicationDescriptor {
	return &PublicationDescriptor{
		ID:             UnresolvedID,
		PublicationURL: "/",
		ImageURL:       "/",
	}
}

// Resolved reports whether the descriptor maps to a real publication.
func (d *PublicationDescriptor) Resolved() bool {
	return d.ID > 0
}

// LocalPageURL returns the page URL in this publication for the given
// generic URL (URL path without the publication prefix). Returns "" when
// the publication URL is empty, signaling that the URL is not resolvable.
func (d *PublicationDescriptor) LocalPageURL(url string) string {
	if d.PublicationURL == "" {
		return ""
	}
	return NormalizeURL(d.PublicationURL + "/" + url)
}

// LocalBinaryURL returns the binary URL in this publication for the given
// generic URL, using the images prefix. Returns "" when the images URL
// is empty.
func (d *PublicationDescriptor) LocalBinaryURL(url string) string {
	if d.ImageURL == "" {
		return ""
	}
	return NormalizeURL(d.ImageURL + "/" + url)
}

// NormalizeURL collapses duplicate slashes and relative segments in a URL
// path while preserving a single leading slash.
func NormalizeURL(url string) string {
	if url == "" {
		return ""
	}
	hadSlash := strings.HasPrefix(url, "/")
	cleaned := path.Clean(url)
	if hadSlash && !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// CreatePathFromURI truncates a URL path to at most level path segments,
// producing the lookup stub for publication discovery. The stub is
// lowercased so it can serve as a case-consistent cache key.
//
//	CreatePathFromURI("/en/products/123", 2) == "/en/products"
func CreatePathFromURI(urlPath string, level int) string {
	normalized := NormalizeURL(urlPath)
	if level <= 0 {
		return strings.ToLower(normalized)
	}
	trimmed := strings.Trim(normalized, "/")
	if trimmed == "" {
		return "/"
	}
	segments := strings.Split(trimmed, "/")
	if len(segments) > level {
		segments = segments[:level]
	}
	return strings.ToLower("/" + strings.Join(segments, "/"))
}
