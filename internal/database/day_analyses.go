package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// InsertDayAnalysis creates an analyst note for a day.
func (db *DB) InsertDayAnalysis(ctx context.Context, a DayAnalysis) (int64, error) {
	if strings.TrimSpace(a.Text) == "" {
		return 0, fmt.Errorf("%w: text is required", ErrInvalid)
	}
	res, err := db.exec(ctx, sq.Insert("day_analyses").
		Columns("text", "date").
		Values(a.Text, a.Date.Format(dateLayout)))
	if err != nil {
		return 0, constraintErr(err)
	}
	return res.LastInsertId()
}

// UpdateDayAnalysis replaces text and date and bumps updated_at.
func (db *DB) UpdateDayAnalysis(ctx context.Context, a DayAnalysis) error {
	if strings.TrimSpace(a.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalid)
	}
	res, err := db.exec(ctx, sq.Update("day_analyses").
		Set("text", a.Text).
		Set("date", a.Date.Format(dateLayout)).
		Set("updated_at", sq.Expr("datetime('now')")).
		Where(sq.Eq{"id": a.ID}))
	if err != nil {
		return constraintErr(err)
	}
	return expectAffected(res)
}

// DeleteDayAnalysis removes a note.
func (db *DB) DeleteDayAnalysis(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "day_analyses", id)
}

// GetDayAnalysis returns a note by id.
func (db *DB) GetDayAnalysis(ctx context.Context, id int64) (*DayAnalysis, error) {
	items, err := db.listDayAnalyses(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// ListDayAnalyses returns notes, newest day first. since restricts the
// result to notes created at or after it.
func (db *DB) ListDayAnalyses(ctx context.Context, since *time.Time) ([]DayAnalysis, error) {
	where := sq.And{}
	if since != nil {
		where = append(where, sq.GtOrEq{"created_at": formatTime(*since)})
	}
	return db.listDayAnalyses(ctx, where)
}

func (db *DB) listDayAnalyses(ctx context.Context, where sq.Sqlizer) ([]DayAnalysis, error) {
	rows, err := db.query(ctx, sq.Select("id", "text", "date", "created_at", "updated_at").
		From("day_analyses").
		Where(where).
		OrderBy("date DESC", "id DESC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []DayAnalysis
	for rows.Next() {
		var a DayAnalysis
		var date, created, updated string
		if err := rows.Scan(&a.ID, &a.Text, &date, &created, &updated); err != nil {
			return nil, err
		}
		if a.Date, err = time.ParseInLocation(dateLayout, date, time.UTC); err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", date, err)
		}
		if a.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if a.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// GetStats returns record counts for the status command.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stories),
			(SELECT COUNT(*) FROM pages),
			(SELECT COUNT(*) FROM pages WHERE is_active = 1),
			(SELECT COUNT(*) FROM topics),
			(SELECT COUNT(*) FROM sub_topics),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM day_analyses),
			(SELECT COUNT(*) FROM stories
				WHERE source_url IS NOT NULL AND (story_text IS NULL OR story_text = '') AND text_fetched = 0)`,
	).Scan(&s.Stories, &s.Pages, &s.ActivePages, &s.Topics, &s.SubTopics, &s.Categories, &s.DayAnalyses, &s.AwaitingText)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
