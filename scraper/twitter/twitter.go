// Package twitter scrapes a public profile timeline with a headless browser.
package twitter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"engagement-dashboard/config"
	"engagement-dashboard/models"
	"engagement-dashboard/scraper"
	"engagement-dashboard/utils"
)

// staleRounds is how many scrolls without new posts end the timeline.
const staleRounds = 4

// Scraper renders profile pages in Chrome and reads posts off the timeline.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
}

// New creates a ready-to-use profile Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{cfg: cfg, logger: logger}
}

// FetchPosts implements scraper.Fetcher. Posts already collected are
// returned with the error when the browser fails mid-scroll.
func (s *Scraper) FetchPosts(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
	chromeBin := s.findChromeBinary()
	s.logger.Debug("[twitter] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.cfg.PageTimeout)
	defer cancelTimeout()

	profileURL := s.cfg.ProfileBaseURL + "/" + handle
	s.logger.Info("[twitter] %s: opening %s (limit %d)", handle, profileURL, limit)

	if err := chromedp.Run(browserCtx, chromedp.Navigate(profileURL)); err != nil {
		return nil, scraper.NewFetchError(handle, scraper.KindNetwork, fmt.Errorf("navigate: %w", err))
	}

	profile, err := s.waitForProfile(browserCtx, handle)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	posts := make([]*models.RawPost, 0)
	stale := 0

	for stale < staleRounds && (limit <= 0 || len(posts) < limit) {
		doc, err := s.snapshot(browserCtx)
		if err != nil {
			return posts, scraper.NewFetchError(handle, scraper.KindNetwork, err)
		}
		if detectState(doc) == pageRateLimited {
			return posts, scraper.NewFetchError(handle, scraper.KindRateLimited, errors.New("timeline throttled"))
		}

		added := 0
		for _, c := range parsePosts(doc, handle) {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			posts = append(posts, toRawPost(handle, profile, c))
			added++
			if limit > 0 && len(posts) >= limit {
				break
			}
		}

		if added == 0 {
			stale++
		} else {
			stale = 0
		}
		s.logger.Debug("[twitter] %s: +%d posts (%d total)", handle, added, len(posts))

		if err := chromedp.Run(browserCtx,
			chromedp.Evaluate(`window.scrollBy(0, window.innerHeight * 2)`, nil),
			chromedp.Sleep(s.cfg.ScrollPause),
		); err != nil {
			return posts, scraper.NewFetchError(handle, scraper.KindNetwork, fmt.Errorf("scroll: %w", err))
		}
	}

	s.logger.Info("[twitter] %s: collected %d posts", handle, len(posts))
	return posts, nil
}

// waitForProfile polls the page until the profile header renders.
func (s *Scraper) waitForProfile(ctx context.Context, handle string) (Profile, error) {
	for attempt := 0; attempt < 20; attempt++ {
		doc, err := s.snapshot(ctx)
		if err != nil {
			return Profile{}, scraper.NewFetchError(handle, scraper.KindNetwork, err)
		}

		switch detectState(doc) {
		case pageNotFound:
			return Profile{}, scraper.NewFetchError(handle, scraper.KindNotFound, errors.New("account does not exist"))
		case pageRateLimited:
			return Profile{}, scraper.NewFetchError(handle, scraper.KindRateLimited, errors.New("profile throttled"))
		case pageReady:
			return parseProfile(doc), nil
		}

		if err := chromedp.Run(ctx, chromedp.Sleep(s.cfg.ScrollPause)); err != nil {
			return Profile{}, scraper.NewFetchError(handle, scraper.KindNetwork, err)
		}
	}
	return Profile{}, scraper.NewFetchError(handle, scraper.KindNetwork, errors.New("profile header never rendered"))
}

// snapshot captures the rendered DOM and parses it.
func (s *Scraper) snapshot(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read DOM: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse DOM: %w", err)
	}
	return doc, nil
}

func toRawPost(handle string, p Profile, c postCard) *models.RawPost {
	return &models.RawPost{
		Handle:         handle,
		DisplayName:    p.DisplayName,
		Description:    p.Description,
		FollowerCount:  p.FollowerCount,
		FollowingCount: p.FollowingCount,
		PostedAt:       c.PostedAt,
		PostID:         c.ID,
		Text:           c.Text,
		Likes:          c.Likes,
		Reposts:        c.Reposts,
		Replies:        c.Replies,
	}
}

func (s *Scraper) findChromeBinary() string {
	if s.cfg.ChromeBin != "" {
		return s.cfg.ChromeBin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
