package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"engagement-dashboard/models"
)

const dateLayout = "2006-01-02"

// insertColumns lists the persisted columns in schema order.
var insertColumns = models.Schema()

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// record renders one row as CSV fields in schema order.
func record(p *models.AnnotatedPost) []string {
	return []string{
		p.Handle,
		p.DisplayName,
		p.Description,
		strconv.FormatInt(p.FollowerCount, 10),
		strconv.FormatInt(p.FollowingCount, 10),
		p.PostedAt.Format(time.RFC3339),
		p.PostID,
		p.Text,
		strconv.FormatInt(p.Likes, 10),
		strconv.FormatInt(p.Reposts, 10),
		strconv.FormatInt(p.Replies, 10),
		formatFloat(p.LikeRatio),
		formatFloat(p.RepostRatio),
		formatFloat(p.ReplyRatio),
		formatFloat(p.EngagementRatio),
		strconv.Itoa(p.Day),
		strconv.Itoa(p.Week),
		strconv.Itoa(p.Month),
		p.Date.Format(dateLayout),
	}
}

// fromRecord parses a CSV record written by record.
func fromRecord(rec []string) (*models.AnnotatedPost, error) {
	if len(rec) != len(insertColumns) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(insertColumns), len(rec))
	}

	p := &models.AnnotatedPost{}
	p.Handle = rec[0]
	p.DisplayName = rec[1]
	p.Description = rec[2]
	p.PostID = rec[6]
	p.Text = rec[7]

	var err error
	ints := []struct {
		dst *int64
		src string
	}{
		{&p.FollowerCount, rec[3]}, {&p.FollowingCount, rec[4]},
		{&p.Likes, rec[8]}, {&p.Reposts, rec[9]}, {&p.Replies, rec[10]},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.ParseInt(f.src, 10, 64); err != nil {
			return nil, err
		}
	}

	floats := []struct {
		dst *float64
		src string
	}{
		{&p.LikeRatio, rec[11]}, {&p.RepostRatio, rec[12]},
		{&p.ReplyRatio, rec[13]}, {&p.EngagementRatio, rec[14]},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(f.src); err != nil {
			return nil, err
		}
	}

	small := []struct {
		dst *int
		src string
	}{{&p.Day, rec[15]}, {&p.Week, rec[16]}, {&p.Month, rec[17]}}
	for _, f := range small {
		if *f.dst, err = strconv.Atoi(f.src); err != nil {
			return nil, err
		}
	}

	if p.PostedAt, err = time.Parse(time.RFC3339, rec[5]); err != nil {
		return nil, err
	}
	if p.Date, err = time.ParseInLocation(dateLayout, rec[18], p.PostedAt.Location()); err != nil {
		return nil, err
	}
	return p, nil
}

// sqlArgs returns the insert arguments of one row in schema order. Ratios
// that are undefined become NULL.
func sqlArgs(p *models.AnnotatedPost, postedAt any) []any {
	return []any{
		p.Handle, p.DisplayName, p.Description, p.FollowerCount, p.FollowingCount,
		postedAt, p.PostID, p.Text, p.Likes, p.Reposts, p.Replies,
		nullFloat(p.LikeRatio), nullFloat(p.RepostRatio),
		nullFloat(p.ReplyRatio), nullFloat(p.EngagementRatio),
		p.Day, p.Week, p.Month, p.Date.Format(dateLayout),
	}
}

// buildInsert renders a multi-row INSERT for n rows using placeholder to
// name the i-th (1-based) argument.
func buildInsert(n int, placeholder func(i int) string) string {
	cols := len(insertColumns)
	values := make([]string, 0, n)
	for r := 0; r < n; r++ {
		ph := make([]string, cols)
		for c := 0; c < cols; c++ {
			ph[c] = placeholder(r*cols + c + 1)
		}
		values = append(values, "("+strings.Join(ph, ",")+")")
	}
	return fmt.Sprintf(`
		INSERT INTO posts (%s)
		VALUES %s
		ON CONFLICT (handle, post_id) DO NOTHING
	`, strings.Join(insertColumns, ", "), strings.Join(values, ","))
}

// writeBatches replaces the posts table with the table rows inside one
// transaction, so a failed batch leaves the previous contents in place.
func writeBatches(db *sql.DB, table *models.CombinedTable, insert func(tx *sql.Tx, batch []*models.AnnotatedPost) error) error {
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM posts"); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	const batchSize = 50
	rows := table.Rows
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := insert(tx, rows[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// scanner abstracts the timestamp columns that differ between backends.
type scanner func(rows *sql.Rows, p *models.AnnotatedPost) error

func scanAll(db *sql.DB, scan scanner) (*models.CombinedTable, error) {
	rows, err := db.Query(fmt.Sprintf(`
		SELECT %s
		FROM posts
		ORDER BY id
	`, strings.Join(insertColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	defer rows.Close()

	var out []*models.AnnotatedPost
	for rows.Next() {
		p := &models.AnnotatedPost{}
		if err := scan(rows, p); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models.NewCombinedTable(out), nil
}

// scanDests returns the scan destinations for every column except the two
// timestamp columns, which the caller supplies.
func scanDests(p *models.AnnotatedPost, postedAt, date any, ratios *[4]sql.NullFloat64) []any {
	return []any{
		&p.Handle, &p.DisplayName, &p.Description, &p.FollowerCount, &p.FollowingCount,
		postedAt, &p.PostID, &p.Text, &p.Likes, &p.Reposts, &p.Replies,
		&ratios[0], &ratios[1], &ratios[2], &ratios[3],
		&p.Day, &p.Week, &p.Month, date,
	}
}

func applyRatios(p *models.AnnotatedPost, ratios [4]sql.NullFloat64) {
	p.LikeRatio = fromNull(ratios[0])
	p.RepostRatio = fromNull(ratios[1])
	p.ReplyRatio = fromNull(ratios[2])
	p.EngagementRatio = fromNull(ratios[3])
}
