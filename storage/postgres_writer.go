package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"engagement-dashboard/models"
	"engagement-dashboard/utils"
)

// PostgresWriter persists the combined table to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 6, BaseDelay: 500 * time.Millisecond, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id               SERIAL PRIMARY KEY,
			handle           VARCHAR(64) NOT NULL,
			display_name     TEXT        NOT NULL DEFAULT '',
			description      TEXT        NOT NULL DEFAULT '',
			follower_count   BIGINT      NOT NULL DEFAULT 0,
			following_count  BIGINT      NOT NULL DEFAULT 0,
			posted_at        TIMESTAMPTZ NOT NULL,
			post_id          VARCHAR(64) NOT NULL,
			text             TEXT        NOT NULL DEFAULT '',
			likes            BIGINT      NOT NULL DEFAULT 0,
			reposts          BIGINT      NOT NULL DEFAULT 0,
			replies          BIGINT      NOT NULL DEFAULT 0,
			like_ratio       DOUBLE PRECISION,
			repost_ratio     DOUBLE PRECISION,
			reply_ratio      DOUBLE PRECISION,
			engagement_ratio DOUBLE PRECISION,
			day              SMALLINT    NOT NULL,
			week             SMALLINT    NOT NULL,
			month            SMALLINT    NOT NULL,
			date             DATE        NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (handle, post_id)
		);
		CREATE INDEX IF NOT EXISTS idx_posts_handle ON posts(handle);
		CREATE INDEX IF NOT EXISTS idx_posts_date   ON posts(date);
	`)
	return err
}

// Write replaces the stored table with the given one.
func (pw *PostgresWriter) Write(table *models.CombinedTable) error {
	err := writeBatches(pw.db, table, pw.insertBatch)
	if err != nil {
		return fmt.Errorf("postgres: write: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(tx *sql.Tx, batch []*models.AnnotatedPost) error {
	args := make([]any, 0, len(batch)*len(insertColumns))
	for _, p := range batch {
		args = append(args, sqlArgs(p, p.PostedAt)...)
	}
	query := buildInsert(len(batch), func(i int) string { return fmt.Sprintf("$%d", i) })
	_, err := tx.Exec(query, args...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves the stored table in insertion order.
func (pw *PostgresWriter) FetchAll() (*models.CombinedTable, error) {
	t, err := scanAll(pw.db, func(rows *sql.Rows, p *models.AnnotatedPost) error {
		var ratios [4]sql.NullFloat64
		var date time.Time
		if err := rows.Scan(scanDests(p, &p.PostedAt, &date, &ratios)...); err != nil {
			return err
		}
		applyRatios(p, ratios)
		p.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, p.PostedAt.Location())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return t, nil
}
