package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/stats"
)

const maxPerFeed = 20

// FeedEntry is one feed item mapped onto story fields.
type FeedEntry struct {
	URL       string
	Title     string // tag list joined with the title separator
	Text      string
	Media     string
	Published time.Time // zero when the feed carries no date
}

// FeedConfig is a single feed and the page its stories belong to.
type FeedConfig struct {
	URL    string
	PageID int64
	Type   string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	parser *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(userAgent string) *FeedParser {
	p := gofeed.NewParser()
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &FeedParser{parser: p}
}

// Parse fetches feedURL and returns up to maxPerFeed entries published at
// or after cutoff. A zero cutoff keeps everything.
func (fp *FeedParser) Parse(ctx context.Context, feedURL string, cutoff time.Time) ([]FeedEntry, error) {
	feed, err := fp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}
		entry := parseItem(item)
		if entry == nil {
			continue
		}
		if cutoff.IsZero() || entry.Published.IsZero() || !entry.Published.Before(cutoff) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func parseItem(item *gofeed.Item) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := itemTags(item)
	if title == "" {
		return nil
	}

	entry := &FeedEntry{URL: itemURL, Title: title}
	if item.PublishedParsed != nil {
		entry.Published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		entry.Published = item.UpdatedParsed.UTC()
	}

	if item.Content != "" {
		entry.Text = database.TruncateText(stripHTML(item.Content))
	} else if item.Description != "" {
		entry.Text = database.TruncateText(stripHTML(item.Description))
	}

	if item.Image != nil && item.Image.URL != "" {
		entry.Media = item.Image.URL
	} else {
		for _, enc := range item.Enclosures {
			if enc.URL != "" {
				entry.Media = enc.URL
				break
			}
		}
	}
	return entry
}

// itemTags prefers the item categories and falls back to its title.
func itemTags(item *gofeed.Item) string {
	var tags []string
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			tags = append(tags, c)
		}
	}
	if len(tags) > 0 {
		return strings.Join(tags, stats.TitleSeparator+" ")
	}
	return strings.TrimSpace(item.Title)
}

func stripHTML(text string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
