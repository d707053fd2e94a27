package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func newStory(title string, pageID *int64) Story {
	return Story{
		Title:   title,
		PageID:  pageID,
		Feeling: FeelingHappy,
		Tone:    ToneFormal,
		Ironic:  IronicAligned,
		Type:    StoryTypeImage,
	}
}

type fixture struct {
	topicID    int64
	subTopicID int64
	pageA      int64
	pageB      int64
}

func seed(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()

	subID, err := db.InsertSubTopic(ctx, "Elections")
	require.NoError(t, err)
	topicID, err := db.InsertTopic(ctx, Topic{Name: "Politics", Icon: "topic/politics.png"}, []int64{subID})
	require.NoError(t, err)

	pageA, err := db.InsertPage(ctx, Page{Name: "Page A", Username: "page_a", TopicID: &topicID, SubTopicID: &subID, FollowersCount: 100, IsActive: true})
	require.NoError(t, err)
	pageB, err := db.InsertPage(ctx, Page{Name: "Page B", Username: "page_b", FollowersCount: 50, IsActive: true})
	require.NoError(t, err)

	return fixture{topicID: topicID, subTopicID: subID, pageA: pageA, pageB: pageB}
}

func TestCategoryCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertCategory(ctx, Category{Name: "News"})
	require.NoError(t, err)

	c, err := db.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "News", c.Name)
	assert.Nil(t, c.Image)

	c.Image = ptr("category_images/news.png")
	require.NoError(t, db.UpdateCategory(ctx, *c))

	all, err := db.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "category_images/news.png", *all[0].Image)

	require.NoError(t, db.DeleteCategory(ctx, id))
	_, err = db.GetCategory(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteCategory(ctx, id), ErrNotFound)
}

func TestCategoryNameTooLong(t *testing.T) {
	db := openTestDB(t)
	_, err := db.InsertCategory(context.Background(), Category{Name: "a name that is far longer than twenty"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTopicCountersAndSubTopics(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	old := newStory("old", &f.pageA)
	old.CreatedAt = time.Now().AddDate(0, 0, -30)
	_, err := db.InsertStory(ctx, old)
	require.NoError(t, err)
	_, err = db.InsertStory(ctx, newStory("recent", &f.pageA))
	require.NoError(t, err)

	topic, err := db.GetTopic(ctx, f.topicID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Politics", topic.Name)
	assert.Equal(t, 1, topic.UsageCount)
	assert.Equal(t, 2, topic.StoryCount)
	require.Len(t, topic.SubTopics, 1)
	assert.Equal(t, "Elections", topic.SubTopics[0].Name)

	since := time.Now().AddDate(0, 0, -7)
	topics, err := db.ListTopics(ctx, &since)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, 1, topics[0].StoryCount)

	// Replacing the link set with an empty slice clears it; nil keeps it.
	require.NoError(t, db.UpdateTopic(ctx, Topic{ID: f.topicID, Name: "Politics", Icon: "x"}, nil))
	topic, _ = db.GetTopic(ctx, f.topicID, nil)
	assert.Len(t, topic.SubTopics, 1)
	require.NoError(t, db.UpdateTopic(ctx, Topic{ID: f.topicID, Name: "Politics", Icon: "x"}, []int64{}))
	topic, _ = db.GetTopic(ctx, f.topicID, nil)
	assert.Empty(t, topic.SubTopics)
}

func TestDeleteTopicKeepsPages(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	require.NoError(t, db.DeleteTopic(ctx, f.topicID))
	page, err := db.GetPage(ctx, f.pageA)
	require.NoError(t, err)
	assert.Nil(t, page.TopicID)
}

func TestPageValidationAndOrdering(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	_, err := db.InsertPage(ctx, Page{Name: "Short", Username: "ab"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = db.InsertPage(ctx, Page{Name: "Dup", Username: "page_a"})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = db.InsertPage(ctx, Page{Name: "Neg", Username: "negative", FollowersCount: -1})
	assert.ErrorIs(t, err, ErrInvalid)

	pages, err := db.ListPages(ctx, PageFilter{})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, f.pageA, pages[0].ID, "largest follower count first")

	byTopic, err := db.ListPages(ctx, PageFilter{TopicID: &f.topicID})
	require.NoError(t, err)
	require.Len(t, byTopic, 1)
	assert.Equal(t, "page_a", byTopic[0].Username)
}

func TestPageUsageCount(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	db.InsertStory(ctx, newStory("a", &f.pageB))
	db.InsertStory(ctx, newStory("b", &f.pageB))

	page, err := db.GetPage(ctx, f.pageB)
	require.NoError(t, err)
	assert.Equal(t, 2, page.UsageCount)
}

func TestStoryCRUDAndJoins(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	id, err := db.InsertStory(ctx, newStory("tag1، tag2", &f.pageA))
	require.NoError(t, err)
	require.NotZero(t, id)

	s, err := db.GetStory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Page A", *s.PageName)
	assert.Equal(t, "page_a", *s.PageUsername)
	assert.Equal(t, "Politics", *s.TopicName)
	assert.Equal(t, "Elections", *s.SubTopicName)
	assert.WithinDuration(t, time.Now(), s.CreatedAt, time.Minute)

	s.Feeling = FeelingAngry
	s.Text = ptr("some body text")
	require.NoError(t, db.UpdateStory(ctx, *s))
	s, _ = db.GetStory(ctx, id)
	assert.Equal(t, FeelingAngry, s.Feeling)
	assert.Equal(t, "some body text", *s.Text)

	bad := *s
	bad.Tone = Tone("shouting")
	assert.ErrorIs(t, db.UpdateStory(ctx, bad), ErrInvalid)

	require.NoError(t, db.DeletePage(ctx, f.pageA))
	s, err = db.GetStory(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, s.PageID, "deleting the page keeps the story")

	require.NoError(t, db.DeleteStory(ctx, id))
	_, err = db.GetStory(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertStoryDuplicateSource(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s := newStory("imported", nil)
	s.SourceURL = ptr("https://example.com/p/1")
	id, err := db.InsertStory(ctx, s)
	require.NoError(t, err)
	assert.NotZero(t, id)

	id, err = db.InsertStory(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestListStoriesFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	withText := newStory("Election، Vote", &f.pageA)
	withText.Text = ptr("Turnout was HIGH today")
	db.InsertStory(ctx, withText)

	old := newStory("Weather", &f.pageB)
	old.CreatedAt = time.Now().AddDate(0, 0, -10)
	db.InsertStory(ctx, old)

	db.InsertStory(ctx, newStory("100% sure", nil))

	all, err := db.ListStories(ctx, StoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, _ := db.ListStories(ctx, StoryFilter{Search: "high"})
	require.Len(t, got, 1, "search is case-insensitive over text")
	assert.Equal(t, "Election، Vote", got[0].Title)

	got, _ = db.ListStories(ctx, StoryFilter{Search: "%"})
	require.Len(t, got, 1, "wildcards match literally")
	assert.Equal(t, "100% sure", got[0].Title)

	got, _ = db.ListStories(ctx, StoryFilter{TopicID: &f.topicID})
	assert.Len(t, got, 1)

	got, _ = db.ListStories(ctx, StoryFilter{PageID: &f.pageB})
	assert.Len(t, got, 1)

	since := time.Now().AddDate(0, 0, -3)
	got, _ = db.ListStories(ctx, StoryFilter{Since: &since})
	assert.Len(t, got, 2)

	got, _ = db.ListStories(ctx, StoryFilter{Since: &since, PageID: &f.pageB})
	assert.Empty(t, got)
}

func TestListStoriesSearchIgnoresUnicodeCase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	db.InsertStory(ctx, newStory("École news", nil))
	cyrillic := newStory("Headline", nil)
	cyrillic.Text = ptr("Москва today")
	db.InsertStory(ctx, cyrillic)
	db.InsertStory(ctx, newStory("STRASSE closed", nil))

	tests := []struct {
		search string
		want   string
	}{
		{"école", "École news"},
		{"ÉCOLE", "École news"},
		{"москва", "Headline"},
		{"straße", "STRASSE closed"},
	}
	for _, tc := range tests {
		t.Run(tc.search, func(t *testing.T) {
			got, err := db.ListStories(ctx, StoryFilter{Search: tc.search})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0].Title)
		})
	}

	got, err := db.ListStories(ctx, StoryFilter{Search: "paris"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", TruncateText("abc"))
	long := strings.Repeat("ب", MaxTextRunes+50)
	got := TruncateText(long)
	assert.Len(t, []rune(got), MaxTextRunes)
	assert.True(t, strings.HasPrefix(long, got))
}

func TestStoryPagesByTopic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	// page without stories is not listed
	_, err := db.InsertPage(ctx, Page{Name: "Idle", Username: "idle_page", FollowersCount: 999})
	require.NoError(t, err)

	db.InsertStory(ctx, newStory("x", &f.pageB))
	db.InsertStory(ctx, newStory("y", &f.pageA))
	db.InsertStory(ctx, newStory("z", &f.pageA))

	rows, err := db.StoryPagesByTopic(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Politics", *rows[0].TopicName)
	assert.Equal(t, int64(100), rows[0].FollowersCount)
	assert.Nil(t, rows[1].TopicName, "pages without topic come last")
	assert.Equal(t, "Page B", rows[1].PageName)
}

func TestStoriesNeedingText(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s := newStory("imported", nil)
	s.SourceURL = ptr("https://example.com/p/2")
	id, _ := db.InsertStory(ctx, s)
	db.InsertStory(ctx, newStory("manual", nil))

	need, err := db.GetStoriesNeedingText(ctx)
	require.NoError(t, err)
	require.Len(t, need, 1)
	assert.Equal(t, id, need[0].ID)

	require.NoError(t, db.UpdateStoryText(ctx, id, "fetched"))
	need, _ = db.GetStoriesNeedingText(ctx)
	assert.Empty(t, need)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Stories)
	assert.Equal(t, 0, stats.AwaitingText)
}

func TestDayAnalysisCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	date := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	id, err := db.InsertDayAnalysis(ctx, DayAnalysis{Text: "Nowruz coverage", Date: date})
	require.NoError(t, err)

	a, err := db.GetDayAnalysis(ctx, id)
	require.NoError(t, err)
	assert.True(t, a.Date.Equal(date))

	a.Text = "Nowruz coverage, revised"
	require.NoError(t, db.UpdateDayAnalysis(ctx, *a))

	since := time.Now().Add(-time.Hour)
	items, err := db.ListDayAnalyses(ctx, &since)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Nowruz coverage, revised", items[0].Text)

	_, err = db.InsertDayAnalysis(ctx, DayAnalysis{Text: "  ", Date: date})
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, db.DeleteDayAnalysis(ctx, id))
	assert.ErrorIs(t, db.DeleteDayAnalysis(ctx, id), ErrNotFound)
}

func TestParseChoices(t *testing.T) {
	f, err := ParseFeeling("شاد")
	require.NoError(t, err)
	assert.Equal(t, FeelingHappy, f)
	assert.Equal(t, "شاد", f.Label())

	tone, err := ParseTone("sarcastic")
	require.NoError(t, err)
	assert.Equal(t, "کنایی", tone.Label())

	_, err = ParseIronic("maybe")
	assert.ErrorIs(t, err, ErrInvalid)

	v, err := ParseOptionalChoice(GenderChoices, "gender", ptr("خانم"))
	require.NoError(t, err)
	assert.Equal(t, "female", *v)
	v, err = ParseOptionalChoice(GenderChoices, "gender", ptr(""))
	require.NoError(t, err)
	assert.Nil(t, v)
}
