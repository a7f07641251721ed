// Package archive serves raw posts from JSON Lines snapshots on disk, one
// file per identity named <handle>.jsonl, newest post first.
package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"engagement-dashboard/models"
	"engagement-dashboard/scraper"
	"engagement-dashboard/utils"
)

// Fetcher reads snapshots from a directory.
type Fetcher struct {
	dir    string
	logger *utils.Logger
}

// New creates an archive Fetcher rooted at dir.
func New(dir string, logger *utils.Logger) *Fetcher {
	return &Fetcher{dir: dir, logger: logger}
}

// Path returns the snapshot file for a handle.
func (f *Fetcher) Path(handle string) string {
	return filepath.Join(f.dir, strings.ToLower(handle)+".jsonl")
}

// FetchPosts implements scraper.Fetcher. Lines after a malformed one are not
// read; the posts decoded so far are returned with the error.
func (f *Fetcher) FetchPosts(ctx context.Context, handle string, limit int) ([]*models.RawPost, error) {
	path := f.Path(handle)
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, scraper.NewFetchError(handle, scraper.KindNotFound, fmt.Errorf("no snapshot at %s", path))
	}
	if err != nil {
		return nil, scraper.NewFetchError(handle, scraper.KindNetwork, err)
	}
	defer file.Close()

	posts := make([]*models.RawPost, 0)
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return posts, err
		}
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		if limit > 0 && len(posts) >= limit {
			break
		}

		var p models.RawPost
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return posts, scraper.NewFetchError(handle, scraper.KindInvalidData,
				fmt.Errorf("%s:%d: %w", path, line, err))
		}
		if p.Handle == "" {
			p.Handle = handle
		}
		posts = append(posts, &p)
	}
	if err := sc.Err(); err != nil {
		return posts, scraper.NewFetchError(handle, scraper.KindNetwork, err)
	}

	f.logger.Debug("[archive] %s: read %d posts from %s", handle, len(posts), path)
	return posts, nil
}

// Save writes posts as a snapshot for handle, replacing any previous one.
func (f *Fetcher) Save(handle string, posts []*models.RawPost) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("archive: create dir: %w", err)
	}

	file, err := os.Create(f.Path(handle))
	if err != nil {
		return fmt.Errorf("archive: create snapshot: %w", err)
	}

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, p := range posts {
		if err := enc.Encode(p); err != nil {
			_ = file.Close()
			return fmt.Errorf("archive: encode post %s: %w", p.PostID, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("archive: flush: %w", err)
	}
	return file.Close()
}
