// Package feed turns literature search results into RSS 2.0 documents.
package feed

import (
	"encoding/xml"
	"fmt"

	"github.com/helixir/inspire-rss-service/internal/domain"
)

const rssVersion = "2.0"

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Author      string `xml:"author"`
	PubDate     string `xml:"pubDate"`
}

// Assemble renders the channel and its items as an RSS 2.0 document.
// Items appear in the order given; an empty slice yields a channel with no items.
func Assemble(ch domain.Channel, items []domain.FeedItem) (string, error) {
	doc := rssDocument{
		Version: rssVersion,
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Items:       make([]rssItem, 0, len(items)),
		},
	}
	for _, item := range items {
		doc.Channel.Items = append(doc.Channel.Items, rssItem(item))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal rss: %w", err)
	}
	return xml.Header + string(out), nil
}
