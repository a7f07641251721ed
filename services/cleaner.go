package services

import (
	"strings"
	"unicode"

	"engagement-dashboard/models"
	"engagement-dashboard/utils"
)

// Cleaner normalises raw posts before metrics are derived.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns sanitised copies of the raw posts of one identity, in input
// order. Posts without an ID and repeated post IDs are dropped, negative
// counters are clamped to zero and the handle is forced to the requested one.
// The input slice and its posts are left untouched.
func (c *Cleaner) Clean(handle string, raw []*models.RawPost) []*models.RawPost {
	seen := make(map[string]struct{}, len(raw))
	result := make([]*models.RawPost, 0, len(raw))

	for _, r := range raw {
		if r == nil {
			continue
		}
		id := strings.TrimSpace(r.PostID)
		if id == "" {
			c.logger.Warn("[cleaner] %s: dropping post without id (%s)", handle, r.PostedAt.Format("2006-01-02"))
			continue
		}
		if _, dup := seen[id]; dup {
			c.logger.Debug("[cleaner] %s: duplicate post %s skipped", handle, id)
			continue
		}
		seen[id] = struct{}{}

		result = append(result, &models.RawPost{
			Handle:         handle,
			DisplayName:    normaliseText(r.DisplayName),
			Description:    normaliseText(r.Description),
			FollowerCount:  nonNegative(r.FollowerCount),
			FollowingCount: nonNegative(r.FollowingCount),
			PostedAt:       r.PostedAt,
			PostID:         id,
			Text:           strings.TrimSpace(r.Text),
			Likes:          nonNegative(r.Likes),
			Reposts:        nonNegative(r.Reposts),
			Replies:        nonNegative(r.Replies),
		})
	}

	if dropped := len(raw) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] %s: cleaned %d → %d posts (dropped %d)", handle, len(raw), len(result), dropped)
	}
	return result
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
