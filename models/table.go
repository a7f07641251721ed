package models

import (
	"fmt"
	"math"
)

// Column names of the combined table. Renderers and writers address columns
// by these names only.
const (
	ColHandle          = "handle"
	ColDisplayName     = "display_name"
	ColDescription     = "description"
	ColFollowerCount   = "follower_count"
	ColFollowingCount  = "following_count"
	ColPostedAt        = "posted_at"
	ColPostID          = "post_id"
	ColText            = "text"
	ColLikes           = "likes"
	ColReposts         = "reposts"
	ColReplies         = "replies"
	ColLikeRatio       = "like_ratio"
	ColRepostRatio     = "repost_ratio"
	ColReplyRatio      = "reply_ratio"
	ColEngagementRatio = "engagement_ratio"
	ColDay             = "day"
	ColWeek            = "week"
	ColMonth           = "month"
	ColDate            = "date"
)

var schema = []string{
	ColHandle, ColDisplayName, ColDescription, ColFollowerCount, ColFollowingCount,
	ColPostedAt, ColPostID, ColText, ColLikes, ColReposts, ColReplies,
	ColLikeRatio, ColRepostRatio, ColReplyRatio, ColEngagementRatio,
	ColDay, ColWeek, ColMonth, ColDate,
}

// Schema returns the declared column names in table order.
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// CombinedTable is the ordered concatenation of per-identity annotated posts.
// Rows are never mutated once the table is built.
type CombinedTable struct {
	Rows []*AnnotatedPost
}

// NewCombinedTable concatenates the given per-identity blocks in order.
func NewCombinedTable(blocks ...[]*AnnotatedPost) *CombinedTable {
	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	rows := make([]*AnnotatedPost, 0, total)
	for _, b := range blocks {
		rows = append(rows, b...)
	}
	return &CombinedTable{Rows: rows}
}

// Columns returns the declared schema. It is the same for empty tables.
func (t *CombinedTable) Columns() []string { return Schema() }

// Len returns the number of rows.
func (t *CombinedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Handles returns the distinct handles in first-appearance order.
func (t *CombinedTable) Handles() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Handle]; ok {
			continue
		}
		seen[r.Handle] = struct{}{}
		out = append(out, r.Handle)
	}
	return out
}

// Float returns the numeric value of the named column for one row.
func (p *AnnotatedPost) Float(column string) (float64, error) {
	switch column {
	case ColFollowerCount:
		return float64(p.FollowerCount), nil
	case ColFollowingCount:
		return float64(p.FollowingCount), nil
	case ColLikes:
		return float64(p.Likes), nil
	case ColReposts:
		return float64(p.Reposts), nil
	case ColReplies:
		return float64(p.Replies), nil
	case ColLikeRatio:
		return p.LikeRatio, nil
	case ColRepostRatio:
		return p.RepostRatio, nil
	case ColReplyRatio:
		return p.ReplyRatio, nil
	case ColEngagementRatio:
		return p.EngagementRatio, nil
	case ColDay:
		return float64(p.Day), nil
	case ColWeek:
		return float64(p.Week), nil
	case ColMonth:
		return float64(p.Month), nil
	}
	return math.NaN(), fmt.Errorf("column %q is not numeric", column)
}
