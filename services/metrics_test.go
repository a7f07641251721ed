package services

import (
	"math"
	"testing"
	"time"

	"engagement-dashboard/models"
)

func rawPosts(handle string, followers int64, likes ...int64) []*models.RawPost {
	base := time.Date(2022, 9, 30, 12, 0, 0, 0, time.UTC)
	posts := make([]*models.RawPost, 0, len(likes))
	for i, l := range likes {
		posts = append(posts, &models.RawPost{
			Handle:        handle,
			FollowerCount: followers,
			PostedAt:      base.Add(-time.Duration(i) * 24 * time.Hour),
			PostID:        handle + "-" + string(rune('0'+i)),
			Likes:         l,
		})
	}
	return posts
}

func TestBuildLikeRatios(t *testing.T) {
	b := NewMetricsBuilder(newTestLogger())
	rows := b.Build(rawPosts("alice", 100, 10, 20, 0), 10)

	want := []float64{10.0, 20.0, 0.0}
	if len(rows) != len(want) {
		t.Fatalf("rows: got %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].LikeRatio != w {
			t.Errorf("row %d like_ratio: got %v, want %v", i, rows[i].LikeRatio, w)
		}
	}
}

func TestBuildZeroFollowersYieldsNaN(t *testing.T) {
	b := NewMetricsBuilder(newTestLogger())
	rows := b.Build(rawPosts("bob", 0, 5, 7), 10)

	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}
	for i, r := range rows {
		for name, v := range map[string]float64{
			"like_ratio":       r.LikeRatio,
			"repost_ratio":     r.RepostRatio,
			"reply_ratio":      r.ReplyRatio,
			"engagement_ratio": r.EngagementRatio,
		} {
			if !math.IsNaN(v) {
				t.Errorf("row %d %s: got %v, want NaN", i, name, v)
			}
		}
	}
}

func TestEngagementIsSumOfComponents(t *testing.T) {
	posts := []*models.RawPost{
		{PostID: "1", FollowerCount: 3, Likes: 1, Reposts: 1, Replies: 1},
		{PostID: "2", FollowerCount: 7, Likes: 13, Reposts: 5, Replies: 2},
		{PostID: "3", FollowerCount: 12_500_000, Likes: 91011, Reposts: 5678, Replies: 1234},
		{PostID: "4", FollowerCount: 1},
	}

	for _, p := range posts {
		r := Annotate(p)
		sum := r.LikeRatio + r.RepostRatio + r.ReplyRatio
		if r.EngagementRatio != sum {
			t.Errorf("post %s: engagement %v != sum %v", p.PostID, r.EngagementRatio, sum)
		}
		direct := float64(p.Likes+p.Reposts+p.Replies) / float64(p.FollowerCount) * 100
		if math.Abs(r.EngagementRatio-direct) > 1e-9 {
			t.Errorf("post %s: engagement %v far from %v", p.PostID, r.EngagementRatio, direct)
		}
	}
}

func TestBuildLimitBoundaries(t *testing.T) {
	b := NewMetricsBuilder(newTestLogger())
	const limit = 5

	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"below limit keeps all", limit - 1, limit - 1},
		{"at limit keeps all", limit, limit},
		{"above limit truncates to limit", limit + 1, limit},
		{"far above limit", limit * 3, limit},
	}

	for _, tt := range tests {
		likes := make([]int64, tt.input)
		rows := b.Build(rawPosts("alice", 10, likes...), limit)
		if len(rows) != tt.want {
			t.Errorf("%s: got %d rows, want %d", tt.name, len(rows), tt.want)
		}
	}
}

func TestBuildNonPositiveLimitKeepsAll(t *testing.T) {
	b := NewMetricsBuilder(newTestLogger())
	rows := b.Build(rawPosts("alice", 10, 1, 2, 3), 0)
	if len(rows) != 3 {
		t.Errorf("got %d rows, want 3", len(rows))
	}
}

func TestBuildPreservesOrderAndInput(t *testing.T) {
	b := NewMetricsBuilder(newTestLogger())
	raw := rawPosts("alice", 10, 1, 2, 3)
	rows := b.Build(raw, 2)

	if rows[0].PostID != raw[0].PostID || rows[1].PostID != raw[1].PostID {
		t.Error("rows must keep input order")
	}
	rows[0].Likes = 999
	if raw[0].Likes == 999 {
		t.Error("annotated rows must not alias raw posts")
	}
}

func TestAnnotateCalendarFields(t *testing.T) {
	tests := []struct {
		at               time.Time
		day, week, month int
		date             string
	}{
		{time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC), 15, 11, 3, "2024-03-15"},
		// ISO week 1 of 2025 starts on Monday 2024-12-30.
		{time.Date(2024, 12, 30, 8, 0, 0, 0, time.UTC), 30, 1, 12, "2024-12-30"},
		// 2021-01-03 belongs to ISO week 53 of 2020.
		{time.Date(2021, 1, 3, 8, 0, 0, 0, time.UTC), 3, 53, 1, "2021-01-03"},
		// Calendar fields follow the timestamp's own zone, not UTC.
		{time.Date(2022, 10, 1, 0, 30, 0, 0, time.FixedZone("BRT", -3*3600)), 1, 39, 10, "2022-10-01"},
	}

	for _, tt := range tests {
		r := Annotate(&models.RawPost{PostID: "x", FollowerCount: 1, PostedAt: tt.at})
		if r.Day != tt.day || r.Week != tt.week || r.Month != tt.month {
			t.Errorf("%v: got day=%d week=%d month=%d; want %d/%d/%d",
				tt.at, r.Day, r.Week, r.Month, tt.day, tt.week, tt.month)
		}
		if got := r.Date.Format("2006-01-02"); got != tt.date {
			t.Errorf("%v: date got %s, want %s", tt.at, got, tt.date)
		}
		if r.Date.Hour() != 0 || r.Date.Minute() != 0 || r.Date.Second() != 0 {
			t.Errorf("%v: date must have no time component, got %v", tt.at, r.Date)
		}
	}
}
