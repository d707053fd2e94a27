package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// PageFilter narrows ListPages. Zero values mean no filter.
type PageFilter struct {
	TopicID    *int64
	CategoryID *int64
}

var pageColumns = []string{
	"p.id", "p.name", "p.username", "p.bio", "p.profile_image", "p.topic_id", "p.sub_topic_id",
	"p.gender", "p.political_orientation", "p.orientation", "p.location",
	"p.followers_count", "p.following_count", "p.posts_count", "p.average_likes", "p.average_comments",
	"p.is_verified", "p.is_active", "p.category_id", "p.created_at",
	"(SELECT COUNT(*) FROM stories s WHERE s.page_id = p.id)",
}

func pageValues(p Page) map[string]any {
	return map[string]any{
		"name":                  p.Name,
		"username":              p.Username,
		"bio":                   p.Bio,
		"profile_image":         p.ProfileImage,
		"topic_id":              p.TopicID,
		"sub_topic_id":          p.SubTopicID,
		"gender":                p.Gender,
		"political_orientation": p.PoliticalOrientation,
		"orientation":           p.Orientation,
		"location":              p.Location,
		"followers_count":       p.FollowersCount,
		"following_count":       p.FollowingCount,
		"posts_count":           p.PostsCount,
		"average_likes":         p.AverageLikes,
		"average_comments":      p.AverageComments,
		"is_verified":           p.IsVerified,
		"is_active":             p.IsActive,
		"category_id":           p.CategoryID,
	}
}

func validatePage(p Page) error {
	if len([]rune(p.Username)) < 3 || len([]rune(p.Username)) > 30 {
		return fmt.Errorf("%w: username must be 3-30 characters", ErrInvalid)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: page name is required", ErrInvalid)
	}
	for _, n := range []int64{p.FollowersCount, p.FollowingCount, p.PostsCount, p.AverageLikes, p.AverageComments} {
		if n < 0 {
			return fmt.Errorf("%w: counters must be non-negative", ErrInvalid)
		}
	}
	return nil
}

// InsertPage creates a page.
func (db *DB) InsertPage(ctx context.Context, p Page) (int64, error) {
	if err := validatePage(p); err != nil {
		return 0, err
	}
	res, err := db.exec(ctx, sq.Insert("pages").SetMap(pageValues(p)))
	if err != nil {
		return 0, constraintErr(err)
	}
	return res.LastInsertId()
}

// UpdatePage replaces the mutable fields of a page.
func (db *DB) UpdatePage(ctx context.Context, p Page) error {
	if err := validatePage(p); err != nil {
		return err
	}
	res, err := db.exec(ctx, sq.Update("pages").SetMap(pageValues(p)).Where(sq.Eq{"id": p.ID}))
	if err != nil {
		return constraintErr(err)
	}
	return expectAffected(res)
}

// DeletePage removes a page; its stories keep existing without a page.
func (db *DB) DeletePage(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "pages", id)
}

// GetPage returns a page by id.
func (db *DB) GetPage(ctx context.Context, id int64) (*Page, error) {
	pages, err := db.listPages(ctx, sq.Eq{"p.id": id})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNotFound
	}
	return &pages[0], nil
}

// ListPages returns pages ordered by follower count, largest first.
func (db *DB) ListPages(ctx context.Context, f PageFilter) ([]Page, error) {
	where := sq.And{}
	if f.TopicID != nil {
		where = append(where, sq.Eq{"p.topic_id": *f.TopicID})
	}
	if f.CategoryID != nil {
		where = append(where, sq.Eq{"p.category_id": *f.CategoryID})
	}
	return db.listPages(ctx, where)
}

func (db *DB) listPages(ctx context.Context, where sq.Sqlizer) ([]Page, error) {
	rows, err := db.query(ctx, sq.Select(pageColumns...).
		From("pages p").
		Where(where).
		OrderBy("p.followers_count DESC", "p.id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPages(rows)
}

func scanPages(rows *sql.Rows) ([]Page, error) {
	var pages []Page
	for rows.Next() {
		var p Page
		var verified, active int
		var created string
		if err := rows.Scan(&p.ID, &p.Name, &p.Username, &p.Bio, &p.ProfileImage, &p.TopicID, &p.SubTopicID,
			&p.Gender, &p.PoliticalOrientation, &p.Orientation, &p.Location,
			&p.FollowersCount, &p.FollowingCount, &p.PostsCount, &p.AverageLikes, &p.AverageComments,
			&verified, &active, &p.CategoryID, &created, &p.UsageCount); err != nil {
			return nil, err
		}
		p.IsVerified = verified != 0
		p.IsActive = active != 0
		t, err := parseTime(created)
		if err != nil {
			return nil, err
		}
		p.CreatedAt = t
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
