package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Identity is one tracked profile in the watchlist.
type Identity struct {
	Handle   string `yaml:"handle"`
	Label    string `yaml:"label,omitempty"`
	Selected bool   `yaml:"selected,omitempty"`
}

// Watchlist is the set of identities offered for analysis.
type Watchlist struct {
	Identities []Identity `yaml:"identities"`
}

// DefaultWatchlist lists the 2022 Brazilian presidential candidates.
func DefaultWatchlist() *Watchlist {
	return &Watchlist{Identities: []Identity{
		{Handle: "jairbolsonaro", Label: "Jair Bolsonaro", Selected: true},
		{Handle: "LulaOficial", Label: "Lula", Selected: true},
		{Handle: "cirogomes", Label: "Ciro Gomes", Selected: true},
		{Handle: "simonetebetbr", Label: "Simone Tebet"},
		{Handle: "fdavilaoficial", Label: "Felipe d'Avila"},
		{Handle: "verapstu", Label: "Vera Lúcia"},
		{Handle: "pablomarcal", Label: "Pablo Marçal"},
	}}
}

// LoadWatchlist reads a YAML watchlist. An empty path yields the default list.
func LoadWatchlist(path string) (*Watchlist, error) {
	if path == "" {
		return DefaultWatchlist(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watchlist: read %q: %w", path, err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("watchlist: parse %q: %w", path, err)
	}
	if err := wl.Validate(); err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	return &wl, nil
}

// Validate checks that every identity has a unique, non-empty handle.
func (w *Watchlist) Validate() error {
	if len(w.Identities) == 0 {
		return fmt.Errorf("at least one identity must be listed")
	}
	seen := make(map[string]struct{}, len(w.Identities))
	for i, id := range w.Identities {
		h := strings.ToLower(strings.TrimSpace(id.Handle))
		if h == "" {
			return fmt.Errorf("identity %d has no handle", i)
		}
		if _, dup := seen[h]; dup {
			return fmt.Errorf("identity %q listed twice", id.Handle)
		}
		seen[h] = struct{}{}
	}
	return nil
}

// Selected returns the handles marked as selected by default, in list order.
func (w *Watchlist) Selected() []string {
	var out []string
	for _, id := range w.Identities {
		if id.Selected {
			out = append(out, id.Handle)
		}
	}
	return out
}

// Label returns the display label for a handle, falling back to the handle.
func (w *Watchlist) Label(handle string) string {
	for _, id := range w.Identities {
		if strings.EqualFold(id.Handle, handle) && id.Label != "" {
			return id.Label
		}
	}
	return handle
}
