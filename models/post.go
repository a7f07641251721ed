package models

import "time"

// RawPost holds one scraped post exactly as the fetcher produced it, together
// with the author's profile counters at scrape time.
type RawPost struct {
	Handle         string    `json:"handle"`
	DisplayName    string    `json:"display_name"`
	Description    string    `json:"description"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	PostedAt       time.Time `json:"posted_at"`
	PostID         string    `json:"post_id"`
	Text           string    `json:"text"`
	Likes          int64     `json:"likes"`
	Reposts        int64     `json:"reposts"`
	Replies        int64     `json:"replies"`
}

// AnnotatedPost is a RawPost plus the engagement ratios and calendar fields
// derived from it. Ratios are percentages of the follower count and are NaN
// when the follower count is zero.
type AnnotatedPost struct {
	RawPost

	LikeRatio       float64
	RepostRatio     float64
	ReplyRatio      float64
	EngagementRatio float64

	Day   int
	Week  int
	Month int
	Date  time.Time
}
