package inspire

import (
	"strconv"
	"strings"
	"time"

	"github.com/helixir/inspire-rss-service/internal/domain"
)

const (
	// SiteURL is the InspireHEP home page, used when a record has no better link.
	SiteURL = "https://inspirehep.net"

	literatureURLPrefix = SiteURL + "/literature/"

	fallbackTitle       = "No Title"
	fallbackDescription = "No abstract available."
	fallbackAuthor      = "Unknown Authors"

	// RSSDateLayout is the RFC 822 date format RSS requires, with a numeric zone.
	RSSDateLayout = time.RFC1123Z
)

// createdLayouts are tried in order when parsing a record creation timestamp.
// Layouts without a zone are read as UTC.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// HitsToFeedItems maps hits to feed items one-to-one, preserving order.
func HitsToFeedItems(hits []Hit) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, len(hits))
	for i := range hits {
		items = append(items, HitToFeedItem(hits[i]))
	}
	return items
}

// HitToFeedItem converts a record into a feed item. It never fails: each field falls
// back to a fixed value when the record does not carry it.
func HitToFeedItem(hit Hit) domain.FeedItem {
	return domain.FeedItem{
		Title:       itemTitle(hit.Metadata),
		Link:        itemLink(hit),
		Description: itemDescription(hit.Metadata),
		Author:      itemAuthor(hit.Metadata),
		PubDate:     itemPubDate(hit.Created),
	}
}

// itemTitle prefers the structured title list over the legacy flat one.
func itemTitle(md Metadata) string {
	if len(md.Titles) > 0 {
		if title, ok := present(md.Titles[0].Title); ok {
			return title
		}
	}
	if len(md.Title) > 0 {
		if title, ok := present(&md.Title[0]); ok {
			return title
		}
	}
	return fallbackTitle
}

func itemLink(hit Hit) string {
	if hit.Metadata.ControlNumber != nil {
		return literatureURLPrefix + strconv.FormatUint(uint64(*hit.Metadata.ControlNumber), 10)
	}
	if link, ok := present(hit.Links.JSON); ok {
		return link
	}
	return SiteURL
}

func itemDescription(md Metadata) string {
	if len(md.Abstracts) > 0 {
		if value, ok := present(md.Abstracts[0].Value); ok {
			return value
		}
	}
	return fallbackDescription
}

// itemAuthor joins the names of all authors that have one.
func itemAuthor(md Metadata) string {
	names := make([]string, 0, len(md.Authors))
	for _, author := range md.Authors {
		if name, ok := present(author.FullName); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fallbackAuthor
	}
	return strings.Join(names, ", ")
}

func itemPubDate(created *string) string {
	t := time.Unix(0, 0)
	if s, ok := present(created); ok {
		if parsed, ok := ParseCreated(s); ok {
			t = parsed
		}
	}
	return FormatRSSDate(t)
}

// ParseCreated parses an ISO-8601 record timestamp.
func ParseCreated(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatRSSDate renders t in UTC using RSSDateLayout.
func FormatRSSDate(t time.Time) string {
	return t.UTC().Format(RSSDateLayout)
}

// present treats nil, empty and whitespace-only strings as absent.
func present(s *string) (string, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "", false
	}
	return *s, true
}
