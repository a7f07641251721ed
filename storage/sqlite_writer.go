package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"engagement-dashboard/models"
)

// SQLiteWriter persists the combined table to a local SQLite file. Timestamps
// are stored as RFC 3339 text so the original offset survives a round trip.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (creating if needed) the database at path.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	sw := &SQLiteWriter{db: db}
	if err := sw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return sw, nil
}

func (sw *SQLiteWriter) migrate() error {
	_, err := sw.db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			handle           TEXT    NOT NULL,
			display_name     TEXT    NOT NULL DEFAULT '',
			description      TEXT    NOT NULL DEFAULT '',
			follower_count   INTEGER NOT NULL DEFAULT 0,
			following_count  INTEGER NOT NULL DEFAULT 0,
			posted_at        TEXT    NOT NULL,
			post_id          TEXT    NOT NULL,
			text             TEXT    NOT NULL DEFAULT '',
			likes            INTEGER NOT NULL DEFAULT 0,
			reposts          INTEGER NOT NULL DEFAULT 0,
			replies          INTEGER NOT NULL DEFAULT 0,
			like_ratio       REAL,
			repost_ratio     REAL,
			reply_ratio      REAL,
			engagement_ratio REAL,
			day              INTEGER NOT NULL,
			week             INTEGER NOT NULL,
			month            INTEGER NOT NULL,
			date             TEXT    NOT NULL,
			UNIQUE (handle, post_id)
		);
		CREATE INDEX IF NOT EXISTS idx_posts_handle ON posts(handle);
	`)
	return err
}

// Write replaces the stored table with the given one.
func (sw *SQLiteWriter) Write(table *models.CombinedTable) error {
	err := writeBatches(sw.db, table, sw.insertBatch)
	if err != nil {
		return fmt.Errorf("sqlite: write: %w", err)
	}
	return nil
}

func (sw *SQLiteWriter) insertBatch(tx *sql.Tx, batch []*models.AnnotatedPost) error {
	args := make([]any, 0, len(batch)*len(insertColumns))
	for _, p := range batch {
		args = append(args, sqlArgs(p, p.PostedAt.Format(time.RFC3339Nano))...)
	}
	query := buildInsert(len(batch), func(int) string { return "?" })
	_, err := tx.Exec(query, args...)
	return err
}

func (sw *SQLiteWriter) Close() error {
	return sw.db.Close()
}

// FetchAll retrieves the stored table in insertion order.
func (sw *SQLiteWriter) FetchAll() (*models.CombinedTable, error) {
	t, err := scanAll(sw.db, func(rows *sql.Rows, p *models.AnnotatedPost) error {
		var ratios [4]sql.NullFloat64
		var postedAt, date string
		if err := rows.Scan(scanDests(p, &postedAt, &date, &ratios)...); err != nil {
			return err
		}
		applyRatios(p, ratios)

		var err error
		if p.PostedAt, err = time.Parse(time.RFC3339Nano, postedAt); err != nil {
			return err
		}
		p.Date, err = time.ParseInLocation(dateLayout, date, p.PostedAt.Location())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	return t, nil
}
