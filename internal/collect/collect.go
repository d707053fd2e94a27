// Package collect imports stories from RSS/Atom feeds.
package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/TobiSchelling/storystats/internal/config"
	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/logger"
)

// StoryWriter is the part of the store the importer writes to.
type StoryWriter interface {
	InsertStory(ctx context.Context, s database.Story) (int64, error)
}

// Result holds the results of an import run.
type Result struct {
	TotalFound int
	NewStories int
	Duplicates int
	Failed     int
	Feeds      map[string]int
}

// Collector imports feed items as stories.
type Collector struct {
	db       StoryWriter
	parser   *FeedParser
	feeds    []FeedConfig
	defaults database.Story
	log      *logger.Logger
}

// NewCollector validates the configured default classification and builds
// a collector over cfg.Import.Feeds.
func NewCollector(cfg *config.Config, db StoryWriter, log *logger.Logger) (*Collector, error) {
	d := cfg.Import.Defaults
	feeling, err := database.ParseFeeling(d.Feeling)
	if err != nil {
		return nil, fmt.Errorf("import defaults: %w", err)
	}
	tone, err := database.ParseTone(d.Tone)
	if err != nil {
		return nil, fmt.Errorf("import defaults: %w", err)
	}
	ironic, err := database.ParseIronic(d.Ironic)
	if err != nil {
		return nil, fmt.Errorf("import defaults: %w", err)
	}

	feeds := make([]FeedConfig, len(cfg.Import.Feeds))
	for i, f := range cfg.Import.Feeds {
		feeds[i] = FeedConfig{URL: f.URL, PageID: f.PageID, Type: f.Type}
	}

	return &Collector{
		db:       db,
		parser:   NewFeedParser(cfg.Fetch.UserAgent),
		feeds:    feeds,
		defaults: database.Story{Feeling: feeling, Tone: tone, Ironic: ironic},
		log:      log.Component("collect"),
	}, nil
}

// Collect imports entries newer than daysBack days from every feed. A
// daysBack of zero imports everything the feeds offer.
func (c *Collector) Collect(ctx context.Context, daysBack int) *Result {
	r := &Result{Feeds: make(map[string]int)}

	var cutoff time.Time
	if daysBack > 0 {
		cutoff = time.Now().AddDate(0, 0, -daysBack)
	}

	for _, fc := range c.feeds {
		storyType, err := database.ParseStoryType(fc.Type)
		if err != nil {
			storyType = database.StoryTypeImage
		}

		entries, err := c.parser.Parse(ctx, fc.URL, cutoff)
		if err != nil {
			c.log.WithError(err).WithField("feed", fc.URL).Warn("failed to parse feed")
			r.Failed++
			continue
		}
		r.TotalFound += len(entries)

		for _, e := range entries {
			id, err := c.db.InsertStory(ctx, c.story(e, fc.PageID, storyType))
			switch {
			case err != nil:
				c.log.WithError(err).WithField("url", e.URL).Warn("failed to store story")
				r.Failed++
			case id > 0:
				r.NewStories++
				r.Feeds[fc.URL]++
			default:
				r.Duplicates++
			}
		}
		c.log.WithField("feed", fc.URL).Infof("parsed %d entries", len(entries))
	}

	c.log.Infof("import complete: %d found, %d new, %d duplicates", r.TotalFound, r.NewStories, r.Duplicates)
	return r
}

func (c *Collector) story(e FeedEntry, pageID int64, storyType database.StoryType) database.Story {
	s := c.defaults
	s.Title = e.Title
	s.Type = storyType
	s.Media = e.Media
	s.CreatedAt = e.Published
	url := e.URL
	s.SourceURL = &url
	if pageID > 0 {
		s.PageID = &pageID
	}
	if e.Text != "" {
		text := e.Text
		s.Text = &text
	}
	return s
}
