package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"golang.org/x/text/cases"
)

// StoryFilter is the shared criteria applied to story listings and to the
// statistics snapshot. All set fields must match. Search is a substring of
// the title or text compared under Unicode case folding.
type StoryFilter struct {
	Search  string
	TopicID *int64
	PageID  *int64
	Since   *time.Time
}

// where covers every field except Search. SQLite's LIKE only folds ASCII,
// so search runs over the scanned rows in matchSearch.
func (f StoryFilter) where() sq.And {
	where := sq.And{}
	if f.TopicID != nil {
		where = append(where, sq.Eq{"p.topic_id": *f.TopicID})
	}
	if f.PageID != nil {
		where = append(where, sq.Eq{"s.page_id": *f.PageID})
	}
	if f.Since != nil {
		where = append(where, sq.GtOrEq{"s.created_at": formatTime(*f.Since)})
	}
	return where
}

func storySelect() sq.SelectBuilder {
	return sq.Select(
		"s.id", "s.title", "s.page_id", "s.media", "s.source_url",
		"s.feeling", "s.tone", "s.ironic", "s.description", "s.story_text", "s.story_type",
		"s.category_id", "s.text_fetched", "s.created_at",
		"p.name", "p.username", "p.topic_id", "t.name", "p.sub_topic_id", "st.name",
	).
		From("stories s").
		LeftJoin("pages p ON p.id = s.page_id").
		LeftJoin("topics t ON t.id = p.topic_id").
		LeftJoin("sub_topics st ON st.id = p.sub_topic_id")
}

func storyValues(s Story) map[string]any {
	return map[string]any{
		"title":       s.Title,
		"page_id":     s.PageID,
		"media":       s.Media,
		"source_url":  s.SourceURL,
		"feeling":     string(s.Feeling),
		"tone":        string(s.Tone),
		"ironic":      string(s.Ironic),
		"description": s.Description,
		"story_text":  s.Text,
		"story_type":  string(s.Type),
		"category_id": s.CategoryID,
	}
}

// MaxTextRunes is the longest story text kept from a feed or article.
const MaxTextRunes = 250

// TruncateText cuts s to MaxTextRunes runes.
func TruncateText(s string) string {
	r := []rune(s)
	if len(r) <= MaxTextRunes {
		return s
	}
	return string(r[:MaxTextRunes])
}

func validateStory(s Story) error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if _, err := ParseFeeling(string(s.Feeling)); err != nil {
		return err
	}
	if _, err := ParseTone(string(s.Tone)); err != nil {
		return err
	}
	if _, err := ParseIronic(string(s.Ironic)); err != nil {
		return err
	}
	if _, err := ParseStoryType(string(s.Type)); err != nil {
		return err
	}
	return nil
}

// InsertStory creates a story. A zero CreatedAt lets the database stamp
// the current time. A duplicate SourceURL returns 0 without error so
// repeated imports are harmless.
func (db *DB) InsertStory(ctx context.Context, s Story) (int64, error) {
	if err := validateStory(s); err != nil {
		return 0, err
	}
	values := storyValues(s)
	if !s.CreatedAt.IsZero() {
		values["created_at"] = formatTime(s.CreatedAt)
	}
	b := sq.Insert("stories").SetMap(values)
	if s.SourceURL != nil {
		b = b.Options("OR IGNORE")
	}
	res, err := db.exec(ctx, b)
	if err != nil {
		return 0, constraintErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// UpdateStory replaces the mutable fields of a story.
func (db *DB) UpdateStory(ctx context.Context, s Story) error {
	if err := validateStory(s); err != nil {
		return err
	}
	res, err := db.exec(ctx, sq.Update("stories").SetMap(storyValues(s)).Where(sq.Eq{"id": s.ID}))
	if err != nil {
		return constraintErr(err)
	}
	return expectAffected(res)
}

// DeleteStory removes a story.
func (db *DB) DeleteStory(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "stories", id)
}

// GetStory returns a story with its page and topic joined.
func (db *DB) GetStory(ctx context.Context, id int64) (*Story, error) {
	rows, err := db.query(ctx, storySelect().Where(sq.Eq{"s.id": id}))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stories, err := scanStories(rows)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, ErrNotFound
	}
	return &stories[0], nil
}

// ListStories returns every story matching f in id order. The statistics
// engine treats the result as its snapshot, so the order is stable.
func (db *DB) ListStories(ctx context.Context, f StoryFilter) ([]Story, error) {
	rows, err := db.query(ctx, storySelect().Where(f.where()).OrderBy("s.id"))
	if err != nil {
		return nil, fmt.Errorf("listing stories: %w", err)
	}
	defer rows.Close()
	stories, err := scanStories(rows)
	if err != nil || f.Search == "" {
		return stories, err
	}
	return matchSearch(stories, f.Search), nil
}

// matchSearch keeps the stories whose title or text contains search.
// A Caser holds state, so each call folds with its own.
func matchSearch(stories []Story, search string) []Story {
	fold := cases.Fold()
	needle := fold.String(search)
	kept := stories[:0]
	for _, st := range stories {
		if strings.Contains(fold.String(st.Title), needle) ||
			(st.Text != nil && strings.Contains(fold.String(*st.Text), needle)) {
			kept = append(kept, st)
		}
	}
	return kept
}

// GetStoriesNeedingText returns stories that have a source url, no text
// and no previous fetch attempt.
func (db *DB) GetStoriesNeedingText(ctx context.Context) ([]Story, error) {
	rows, err := db.query(ctx, storySelect().
		Where("s.source_url IS NOT NULL").
		Where("(s.story_text IS NULL OR s.story_text = '')").
		Where(sq.Eq{"s.text_fetched": 0}).
		OrderBy("s.id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// UpdateStoryText stores fetched text and marks the attempt.
func (db *DB) UpdateStoryText(ctx context.Context, id int64, text string) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE stories SET story_text = ?, text_fetched = 1 WHERE id = ?", text, id)
	return err
}

// MarkStoryTextAttempted records a fetch attempt that produced nothing.
func (db *DB) MarkStoryTextAttempted(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, "UPDATE stories SET text_fetched = 1 WHERE id = ?", id)
	return err
}

// CountPages returns the number of tracked pages.
func (db *DB) CountPages(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM pages").Scan(&n)
	return n, err
}

// StoryPagesByTopic returns every page that owns at least one story, with
// its topic name, ordered by topic name then page id. It ignores all story
// filters.
func (db *DB) StoryPagesByTopic(ctx context.Context) ([]TopicPage, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.name, p.id, p.name, p.followers_count
		FROM pages p
		LEFT JOIN topics t ON t.id = p.topic_id
		WHERE EXISTS (SELECT 1 FROM stories s WHERE s.page_id = p.id)
		ORDER BY t.name IS NULL, t.name, p.id`)
	if err != nil {
		return nil, fmt.Errorf("listing story pages: %w", err)
	}
	defer rows.Close()

	var out []TopicPage
	for rows.Next() {
		var tp TopicPage
		if err := rows.Scan(&tp.TopicName, &tp.PageID, &tp.PageName, &tp.FollowersCount); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func scanStories(rows *sql.Rows) ([]Story, error) {
	var stories []Story
	for rows.Next() {
		var s Story
		var feeling, tone, ironic, storyType, created string
		var fetched int
		if err := rows.Scan(&s.ID, &s.Title, &s.PageID, &s.Media, &s.SourceURL,
			&feeling, &tone, &ironic, &s.Description, &s.Text, &storyType,
			&s.CategoryID, &fetched, &created,
			&s.PageName, &s.PageUsername, &s.TopicID, &s.TopicName, &s.SubTopicID, &s.SubTopicName); err != nil {
			return nil, err
		}
		s.Feeling = Feeling(feeling)
		s.Tone = Tone(tone)
		s.Ironic = Ironic(ironic)
		s.Type = StoryType(storyType)
		s.TextFetched = fetched != 0
		t, err := parseTime(created)
		if err != nil {
			return nil, err
		}
		s.CreatedAt = t
		stories = append(stories, s)
	}
	return stories, rows.Err()
}
