package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// UnknownID is the sentinel used when content or publisher identity cannot
// be parsed. Lookups degrade to it instead of failing.
const UnknownID = "unknown"

// ContentIdentity identifies the currently playing item and its publisher.
// It has no lifecycle of its own: it is recomputed on every navigation and
// only compared against the previously seen one.
type ContentIdentity struct {
	ContentID     string `json:"content_id"`
	PublisherID   string `json:"publisher_id"`
	PublisherName string `json:"publisher_name"`
	Title         string `json:"title"`
}

// Changed reports whether the playing content differs from prev.
func (id ContentIdentity) Changed(prev ContentIdentity) bool {
	return id.ContentID != prev.ContentID
}

// publisherPathRe matches the publisher-link href forms the site uses:
// /channel/<id>, /c/<id>, /user/<id> and /@<handle>.
var publisherPathRe = regexp.MustCompile(`^/(?:(?:channel|c|user)/|@)([^/?#]+)`)

// ParseIdentity derives a ContentIdentity from scraped page metadata.
// Unparsable pieces degrade to UnknownID, never to an error.
func ParseIdentity(pageURL, publisherHref, publisherName, title string) ContentIdentity {
	return ContentIdentity{
		ContentID:     parseContentID(pageURL),
		PublisherID:   parsePublisherID(publisherHref),
		PublisherName: publisherName,
		Title:         title,
	}
}

// parseContentID extracts the content id from the page URL's "v" query
// parameter.
func parseContentID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return UnknownID
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	return UnknownID
}

// parsePublisherID extracts the publisher id from a publisher-link href.
// Accepts absolute URLs and bare paths.
func parsePublisherID(href string) string {
	if href == "" {
		return UnknownID
	}
	path := href
	if strings.Contains(href, "://") {
		u, err := url.Parse(href)
		if err != nil {
			return UnknownID
		}
		path = u.Path
	}
	m := publisherPathRe.FindStringSubmatch(path)
	if m == nil {
		return UnknownID
	}
	return m[1]
}
