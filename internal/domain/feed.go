// Package domain holds the core types shared by the literature fetcher, the record
// mapper and the feed assembler.
package domain

// FeedItem is one syndication entry derived from an upstream literature record.
// Every field is always populated; the mapper substitutes a fallback for any value
// the record does not carry.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Author      string
	// PubDate is already rendered in the RSS date format.
	PubDate string
}

// Channel is the feed-level envelope wrapping all items.
type Channel struct {
	Title       string
	Link        string
	Description string
}

// DefaultChannel returns the channel metadata used when none is configured.
func DefaultChannel() Channel {
	return Channel{
		Title:       "InspireHEP Literature",
		Link:        "https://inspirehep.net",
		Description: "Literature of specified request",
	}
}
