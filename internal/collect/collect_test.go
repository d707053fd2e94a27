package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/storystats/internal/config"
	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/logger"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test</title>
  <item>
    <title>Morning post</title>
    <link>https://example.com/p/1</link>
    <category>election</category>
    <category> vote </category>
    <description><![CDATA[<p>Turnout <b>was</b> high &amp; rising</p>]]></description>
    <enclosure url="https://cdn.example.com/1.jpg" type="image/jpeg" length="1"/>
    <pubDate>Wed, 20 Mar 2024 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Evening post</title>
    <link>https://example.com/p/2</link>
  </item>
  <item>
    <title></title>
    <link>https://example.com/p/3</link>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed.xml" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeed))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedParserParse(t *testing.T) {
	srv := feedServer(t)

	entries, err := NewFeedParser("test").Parse(context.Background(), srv.URL+"/feed.xml", time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "https://example.com/p/1", first.URL)
	assert.Equal(t, "election، vote", first.Title)
	assert.Equal(t, "Turnout was high & rising", first.Text)
	assert.Equal(t, "https://cdn.example.com/1.jpg", first.Media)
	assert.True(t, first.Published.Equal(time.Date(2024, time.March, 20, 8, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Evening post", entries[1].Title)
	assert.True(t, entries[1].Published.IsZero())
}

func TestFeedParserCutoff(t *testing.T) {
	srv := feedServer(t)

	entries, err := NewFeedParser("").Parse(context.Background(), srv.URL+"/feed.xml", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, entries, 1, "undated entries are kept")
	assert.Equal(t, "Evening post", entries[0].Title)
}

func TestCollectStoresStories(t *testing.T) {
	srv := feedServer(t)
	ctx := context.Background()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pageID, err := db.InsertPage(ctx, database.Page{Name: "Feed page", Username: "feed_page"})
	require.NoError(t, err)

	cfg := &config.Config{Import: config.Import{
		Feeds: []config.Feed{
			{URL: srv.URL + "/feed.xml", PageID: pageID, Type: "video"},
			{URL: srv.URL + "/missing.xml", PageID: pageID},
		},
		Defaults: config.Classification{Feeling: "calm", Tone: "informal", Ironic: "unclear"},
	}}
	c, err := NewCollector(cfg, db, logger.Discard())
	require.NoError(t, err)

	r := c.Collect(ctx, 0)
	assert.Equal(t, 2, r.TotalFound)
	assert.Equal(t, 2, r.NewStories)
	assert.Equal(t, 1, r.Failed)

	stories, err := db.ListStories(ctx, database.StoryFilter{})
	require.NoError(t, err)
	require.Len(t, stories, 2)
	s := stories[0]
	assert.Equal(t, database.FeelingCalm, s.Feeling)
	assert.Equal(t, database.StoryTypeVideo, s.Type)
	assert.Equal(t, pageID, *s.PageID)
	assert.Equal(t, "2024-03-20", s.CreatedAt.Format("2006-01-02"))

	again := c.Collect(ctx, 0)
	assert.Equal(t, 0, again.NewStories)
	assert.Equal(t, 2, again.Duplicates)
}

func TestNewCollectorRejectsBadDefaults(t *testing.T) {
	cfg := &config.Config{Import: config.Import{
		Defaults: config.Classification{Feeling: "bored", Tone: "formal", Ironic: "aligned"},
	}}
	_, err := NewCollector(cfg, nil, logger.Discard())
	assert.ErrorIs(t, err, database.ErrInvalid)
}
