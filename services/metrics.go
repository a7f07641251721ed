package services

import (
	"math"
	"time"

	"engagement-dashboard/models"
	"engagement-dashboard/utils"
)

// MetricsBuilder turns one identity's raw posts into annotated rows.
type MetricsBuilder struct {
	logger *utils.Logger
}

// NewMetricsBuilder creates a MetricsBuilder with the given logger.
func NewMetricsBuilder(logger *utils.Logger) *MetricsBuilder {
	return &MetricsBuilder{logger: logger}
}

// Build keeps at most limit posts (limit <= 0 keeps all) and annotates each
// one, preserving input order. Posts whose author has no followers get NaN
// ratios instead of an error.
func (b *MetricsBuilder) Build(raw []*models.RawPost, limit int) []*models.AnnotatedPost {
	if limit > 0 && len(raw) > limit {
		raw = raw[:limit]
	}

	rows := make([]*models.AnnotatedPost, 0, len(raw))
	undefined := 0
	for _, p := range raw {
		row := Annotate(p)
		if math.IsNaN(row.EngagementRatio) {
			undefined++
		}
		rows = append(rows, row)
	}

	if undefined > 0 {
		b.logger.Warn("[metrics] %s: follower count is zero, ratios undefined for %d of %d posts",
			rows[0].Handle, undefined, len(rows))
	}
	return rows
}

// Annotate derives the ratio and calendar fields of a single post. The
// calendar fields use the location of the post's own timestamp.
func Annotate(p *models.RawPost) *models.AnnotatedPost {
	row := &models.AnnotatedPost{RawPost: *p}

	row.LikeRatio = ratio(p.Likes, p.FollowerCount)
	row.RepostRatio = ratio(p.Reposts, p.FollowerCount)
	row.ReplyRatio = ratio(p.Replies, p.FollowerCount)
	// Summed from the components so engagement == like + repost + reply holds exactly.
	row.EngagementRatio = row.LikeRatio + row.RepostRatio + row.ReplyRatio

	t := p.PostedAt
	_, week := t.ISOWeek()
	row.Day = t.Day()
	row.Week = week
	row.Month = int(t.Month())
	row.Date = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	return row
}

// ratio returns n as a percentage of followers, or NaN when followers is zero.
func ratio(n, followers int64) float64 {
	if followers <= 0 {
		return math.NaN()
	}
	return float64(n) / float64(followers) * 100
}
