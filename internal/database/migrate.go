package database

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

// schemaVersion reads the story schema version stored in user_version.
func schemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading story schema version: %w", err)
	}
	return version, nil
}

// migrate upgrades the story schema to latestVersion. A file written by a
// newer storystats build is refused rather than opened with missing columns.
func migrate(conn *sql.DB) error {
	current, err := schemaVersion(conn)
	if err != nil {
		return err
	}

	latest := latestVersion()
	switch {
	case current > latest:
		return fmt.Errorf("story schema version %d is newer than this build (%d)", current, latest)
	case current == latest:
		return nil
	}

	log := logrus.WithFields(logrus.Fields{"component": "database", "from": current, "to": latest})
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		log.WithFields(logrus.Fields{"version": m.Version, "step": m.Description}).Info("upgrading story schema")
		if err := applyMigration(conn, m); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs m in its own transaction and then records its
// version. modernc/sqlite ignores user_version writes made inside a
// transaction, and every step is idempotent DDL, so a crash between the
// two only repeats m on the next Open.
func applyMigration(conn *sql.DB, m Migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("schema step %d: begin: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("schema step %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schema step %d: commit: %w", m.Version, err)
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("schema step %d: recording version: %w", m.Version, err)
	}
	return nil
}
