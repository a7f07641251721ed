package services

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"engagement-dashboard/models"
)

// Labeler maps a handle to the name shown in tables. A nil Labeler shows
// handles as they are.
type Labeler func(handle string) string

func (l Labeler) name(handle string) string {
	if l == nil {
		return handle
	}
	if label := l(handle); label != "" && label != handle {
		return label + " (@" + handle + ")"
	}
	return handle
}

// PrintStatuses renders one line per requested identity so that failed and
// empty loads are always visible.
func PrintStatuses(w io.Writer, statuses []models.LoadStatus, label Labeler) {
	t := newTable(w)
	t.SetTitle("Identities")
	t.AppendHeader(table.Row{"Identity", "Status", "Posts", "Took", "Error"})

	for _, s := range statuses {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		t.AppendRow(table.Row{label.name(s.Handle), stateLabel(s.State), s.Posts, s.Duration.Round(time.Millisecond), errText})
	}
	if len(statuses) == 0 {
		t.AppendRow(table.Row{"(none selected)", "", "", "", ""})
	}
	t.Render()
}

func stateLabel(s models.LoadState) string {
	switch s {
	case models.LoadLoaded:
		return "\033[32m" + string(s) + "\033[0m"
	case models.LoadPartial, models.LoadEmpty:
		return "\033[33m" + string(s) + "\033[0m"
	case models.LoadFailed:
		return "\033[31m" + string(s) + "\033[0m"
	}
	return string(s)
}

// PrintSeries renders a series as a period × identity grid.
func PrintSeries(w io.Writer, s *models.Series, label Labeler) {
	var handles []string
	var labels []string
	seenHandle := make(map[string]bool)
	seenLabel := make(map[string]bool)
	cells := make(map[string]map[string]models.SeriesPoint)

	for _, p := range s.Points {
		if !seenHandle[p.Handle] {
			seenHandle[p.Handle] = true
			handles = append(handles, p.Handle)
			cells[p.Handle] = make(map[string]models.SeriesPoint)
		}
		if !seenLabel[p.Label] {
			seenLabel[p.Label] = true
			labels = append(labels, p.Label)
		}
		cells[p.Handle][p.Label] = p
	}
	sort.Strings(labels)

	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s(%s) per %s", s.Aggregation, s.Metric, s.Period))

	header := table.Row{string(s.Period)}
	for _, h := range handles {
		header = append(header, label.name(h))
	}
	t.AppendHeader(header)

	for _, l := range labels {
		row := table.Row{l}
		for _, h := range handles {
			if p, ok := cells[h][l]; ok {
				row = append(row, formatValue(p.Value))
			} else {
				row = append(row, "")
			}
		}
		t.AppendRow(row)
	}
	t.Render()
}
