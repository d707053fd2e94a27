package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// InsertSubTopic creates a sub-topic.
func (db *DB) InsertSubTopic(ctx context.Context, name string) (int64, error) {
	if err := requireName("name", name); err != nil {
		return 0, err
	}
	res, err := db.exec(ctx, sq.Insert("sub_topics").Columns("name").Values(name))
	if err != nil {
		return 0, constraintErr(err)
	}
	return res.LastInsertId()
}

// GetSubTopic returns a sub-topic by id.
func (db *DB) GetSubTopic(ctx context.Context, id int64) (*SubTopic, error) {
	var s SubTopic
	err := db.conn.QueryRowContext(ctx, "SELECT id, name FROM sub_topics WHERE id = ?", id).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSubTopics returns all sub-topics ordered by id.
func (db *DB) ListSubTopics(ctx context.Context) ([]SubTopic, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, name FROM sub_topics ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []SubTopic
	for rows.Next() {
		var s SubTopic
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// UpdateSubTopic renames a sub-topic.
func (db *DB) UpdateSubTopic(ctx context.Context, s SubTopic) error {
	if err := requireName("name", s.Name); err != nil {
		return err
	}
	res, err := db.exec(ctx, sq.Update("sub_topics").Set("name", s.Name).Where(sq.Eq{"id": s.ID}))
	if err != nil {
		return constraintErr(err)
	}
	return expectAffected(res)
}

// DeleteSubTopic removes a sub-topic and its topic links.
func (db *DB) DeleteSubTopic(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "sub_topics", id)
}

// InsertTopic creates a topic linked to the given sub-topics.
func (db *DB) InsertTopic(ctx context.Context, t Topic, subTopicIDs []int64) (int64, error) {
	if err := requireName("name", t.Name); err != nil {
		return 0, err
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO topics (name, icon) VALUES (?, ?)", t.Name, t.Icon)
	if err != nil {
		return 0, constraintErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := linkSubTopics(ctx, tx, id, subTopicIDs); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// UpdateTopic replaces name and icon. A non-nil subTopicIDs replaces the
// linked sub-topics; nil leaves them untouched.
func (db *DB) UpdateTopic(ctx context.Context, t Topic, subTopicIDs []int64) error {
	if err := requireName("name", t.Name); err != nil {
		return err
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE topics SET name = ?, icon = ? WHERE id = ?", t.Name, t.Icon, t.ID)
	if err != nil {
		return constraintErr(err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	if subTopicIDs != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM topic_sub_topics WHERE topic_id = ?", t.ID); err != nil {
			return err
		}
		if err := linkSubTopics(ctx, tx, t.ID, subTopicIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func linkSubTopics(ctx context.Context, tx *sql.Tx, topicID int64, subTopicIDs []int64) error {
	if len(subTopicIDs) == 0 {
		return nil
	}
	b := sq.Insert("topic_sub_topics").Options("OR IGNORE").Columns("topic_id", "sub_topic_id")
	for _, sid := range subTopicIDs {
		b = b.Values(topicID, sid)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("building query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return constraintErr(err)
	}
	return nil
}

// DeleteTopic removes a topic; its pages keep existing without a topic.
func (db *DB) DeleteTopic(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "topics", id)
}

// GetTopic returns a topic with its sub-topics and usage counters.
func (db *DB) GetTopic(ctx context.Context, id int64, since *time.Time) (*Topic, error) {
	topics, err := db.listTopics(ctx, sq.Eq{"t.id": id}, since)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, ErrNotFound
	}
	return &topics[0], nil
}

// ListTopics returns all topics. StoryCount only counts stories created at
// or after since when it is set.
func (db *DB) ListTopics(ctx context.Context, since *time.Time) ([]Topic, error) {
	return db.listTopics(ctx, nil, since)
}

func (db *DB) listTopics(ctx context.Context, where sq.Sqlizer, since *time.Time) ([]Topic, error) {
	storyCount := sq.Select("COUNT(*)").From("stories s").
		Join("pages p ON p.id = s.page_id").
		Where("p.topic_id = t.id")
	if since != nil {
		storyCount = storyCount.Where(sq.GtOrEq{"s.created_at": formatTime(*since)})
	}

	b := sq.Select("t.id", "t.name", "t.icon").
		Column("(SELECT COUNT(*) FROM pages p WHERE p.topic_id = t.id)").
		Column(sq.Alias(storyCount, "story_count")).
		From("topics t").
		OrderBy("t.id")
	if where != nil {
		b = b.Where(where)
	}

	rows, err := db.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []Topic
	index := make(map[int64]int)
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Icon, &t.UsageCount, &t.StoryCount); err != nil {
			return nil, err
		}
		t.SubTopics = []SubTopic{}
		index[t.ID] = len(topics)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return topics, nil
	}

	ids := make([]int64, 0, len(topics))
	for _, t := range topics {
		ids = append(ids, t.ID)
	}
	links, err := db.query(ctx, sq.Select("l.topic_id", "s.id", "s.name").
		From("topic_sub_topics l").
		Join("sub_topics s ON s.id = l.sub_topic_id").
		Where(sq.Eq{"l.topic_id": ids}).
		OrderBy("s.id"))
	if err != nil {
		return nil, err
	}
	defer links.Close()

	for links.Next() {
		var topicID int64
		var s SubTopic
		if err := links.Scan(&topicID, &s.ID, &s.Name); err != nil {
			return nil, err
		}
		i := index[topicID]
		topics[i].SubTopics = append(topics[i].SubTopics, s)
	}
	return topics, links.Err()
}
