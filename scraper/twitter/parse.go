package twitter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// countRegexp captures abbreviated counters such as "1,234", "12.5K" or "3M".
	countRegexp = regexp.MustCompile(`(?i)(\d[\d,.]*)\s*([KMB]|mil|mi)?\b`)
	// statusRegexp captures the author and id of a post permalink.
	statusRegexp = regexp.MustCompile(`^/([^/]+)/status/(\d+)`)
)

// Profile is the header block of a profile page.
type Profile struct {
	DisplayName    string
	Description    string
	FollowerCount  int64
	FollowingCount int64
}

// postCard is one post as rendered in the profile timeline.
type postCard struct {
	ID       string
	Author   string
	PostedAt time.Time
	Text     string
	Likes    int64
	Reposts  int64
	Replies  int64
}

// pageState classifies what the profile page is showing.
type pageState int

const (
	pageReady pageState = iota
	pageNotFound
	pageRateLimited
	pageLoading
)

// detectState inspects the rendered page for account or throttling notices.
func detectState(doc *goquery.Document) pageState {
	text := strings.ToLower(doc.Find("body").Text())
	switch {
	case strings.Contains(text, "this account doesn’t exist"),
		strings.Contains(text, "this account doesn't exist"),
		strings.Contains(text, "account suspended"):
		return pageNotFound
	case strings.Contains(text, "rate limit exceeded"),
		strings.Contains(text, "something went wrong. try reloading"):
		return pageRateLimited
	case doc.Find(`[data-testid="UserName"]`).Length() == 0:
		return pageLoading
	}
	return pageReady
}

// parseProfile reads the display name, bio and counters from the header.
func parseProfile(doc *goquery.Document) Profile {
	var p Profile

	doc.Find(`[data-testid="UserName"] span`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := strings.TrimSpace(s.Text()); t != "" {
			p.DisplayName = t
			return false
		}
		return true
	})
	p.Description = normaliseText(doc.Find(`[data-testid="UserDescription"]`).First().Text())

	doc.Find(`a[href]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		switch {
		case strings.HasSuffix(href, "/following"):
			p.FollowingCount = parseCount(s.Text())
		case strings.HasSuffix(href, "/verified_followers"), strings.HasSuffix(href, "/followers"):
			if n := parseCount(s.Text()); n > p.FollowerCount {
				p.FollowerCount = n
			}
		}
	})

	return p
}

// parsePosts extracts the posts authored by handle, in page order.
// Reposts of other accounts are skipped.
func parsePosts(doc *goquery.Document, handle string) []postCard {
	var cards []postCard

	doc.Find(`article[data-testid="tweet"]`).Each(func(_ int, s *goquery.Selection) {
		timeEl := s.Find(`time[datetime]`).First()
		href, _ := timeEl.Closest("a").Attr("href")
		m := statusRegexp.FindStringSubmatch(href)
		if m == nil || !strings.EqualFold(m[1], handle) {
			return
		}

		stamp, _ := timeEl.Attr("datetime")
		postedAt, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return
		}

		cards = append(cards, postCard{
			ID:       m[2],
			Author:   m[1],
			PostedAt: postedAt,
			Text:     strings.TrimSpace(s.Find(`[data-testid="tweetText"]`).First().Text()),
			Replies:  parseAction(s, "reply"),
			Reposts:  parseAction(s, "retweet"),
			Likes:    parseAction(s, "like"),
		})
	})

	return cards
}

// parseAction reads an engagement counter button. The aria-label carries the
// exact figure; the visible text is abbreviated.
func parseAction(s *goquery.Selection, testID string) int64 {
	btn := s.Find(`[data-testid="` + testID + `"], [data-testid="un` + testID + `"]`).First()
	if label, ok := btn.Attr("aria-label"); ok {
		if n := parseCount(label); n > 0 {
			return n
		}
	}
	return parseCount(btn.Text())
}

// parseCount converts "1,234", "12.5K", "3M" or "1,2 mil" to an integer.
// Unparseable input yields 0.
func parseCount(raw string) int64 {
	m := countRegexp.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0
	}

	num := m[1]
	suffix := strings.ToLower(m[2])

	if suffix == "" {
		num = strings.NewReplacer(",", "", ".", "").Replace(num)
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}

	// Abbreviated values use a single decimal separator, "." or ",".
	num = strings.ReplaceAll(num, ",", ".")
	if strings.Count(num, ".") > 1 {
		return 0
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}

	mult := 1.0
	switch suffix {
	case "k", "mil":
		mult = 1e3
	case "m", "mi":
		mult = 1e6
	case "b":
		mult = 1e9
	}
	return int64(f*mult + 0.5)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
