package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// constraintErr maps SQLite constraint violations onto ErrInvalid.
func constraintErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return err
}

func requireName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, field)
	}
	return nil
}

// InsertCategory creates a category.
func (db *DB) InsertCategory(ctx context.Context, c Category) (int64, error) {
	if err := requireName("name", c.Name); err != nil {
		return 0, err
	}
	res, err := db.exec(ctx, sq.Insert("categories").
		Columns("name", "image").
		Values(c.Name, c.Image))
	if err != nil {
		return 0, constraintErr(err)
	}
	return res.LastInsertId()
}

// GetCategory returns a category by id.
func (db *DB) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, name, image FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns all categories ordered by id.
func (db *DB) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, name, image FROM categories ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Image); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory replaces the mutable fields of a category.
func (db *DB) UpdateCategory(ctx context.Context, c Category) error {
	if err := requireName("name", c.Name); err != nil {
		return err
	}
	res, err := db.exec(ctx, sq.Update("categories").
		Set("name", c.Name).
		Set("image", c.Image).
		Where(sq.Eq{"id": c.ID}))
	if err != nil {
		return constraintErr(err)
	}
	return expectAffected(res)
}

// DeleteCategory removes a category; pages and stories keep existing with
// a null category.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	return db.deleteByID(ctx, "categories", id)
}
