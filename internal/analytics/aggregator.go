package analytics

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/thoas/go-funk"
)

// DayLayout keys ClicksByDay.
const DayLayout = "2006-01-02"

// Stats summarizes the clicks of one alias.
type Stats struct {
	TotalClicks   int
	ClicksByDay   map[string]int
	TopReferrers  map[string]int
	TopUserAgents map[string]int
	LastClick     *time.Time
	// Events holds the raw clicks ordered by ClickedAt.
	Events []ClickEvent
}

// NewStats returns empty stats.
func NewStats() *Stats {
	return &Stats{
		ClicksByDay:   map[string]int{},
		TopReferrers:  map[string]int{},
		TopUserAgents: map[string]int{},
		Events:        []ClickEvent{},
	}
}

// Add folds one click into the summary.
func (s *Stats) Add(e ClickEvent) {
	s.TotalClicks++
	s.ClicksByDay[e.ClickedAt.UTC().Format(DayLayout)]++

	if e.Referrer != "" {
		s.TopReferrers[e.Referrer]++
	}

	s.TopUserAgents[e.UserAgent]++

	if s.LastClick == nil || e.ClickedAt.After(*s.LastClick) {
		last := e.ClickedAt
		s.LastClick = &last
	}

	s.Events = append(s.Events, e)
}

// Aggregator computes Stats on demand from the stored click events.
type Aggregator struct {
	clicks ClickSource
}

// NewAggregator creates an aggregator.
func NewAggregator(clicks ClickSource) *Aggregator {
	return &Aggregator{clicks: clicks}
}

// Aggregate reads every click of alias once and summarizes them.
func (a *Aggregator) Aggregate(ctx context.Context, alias string) (*Stats, error) {
	stats := NewStats()

	for event, err := range a.clicks.ListByAlias(ctx, alias) {
		if err != nil {
			return nil, fmt.Errorf("list clicks for %s: %w", alias, err)
		}

		stats.Add(event)
	}

	slices.SortStableFunc(stats.Events, func(a, b ClickEvent) int {
		return a.ClickedAt.Compare(b.ClickedAt)
	})

	return stats, nil
}

// Count is one entry of a ranking.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Ranked orders counts descending, ties by key, keeping at most n entries.
// A non-positive n keeps everything.
func Ranked(counts map[string]int, n int) []Count {
	keys, _ := funk.Keys(counts).([]string)

	ranked := make([]Count, 0, len(keys))
	for _, k := range keys {
		ranked = append(ranked, Count{Key: k, Count: counts[k]})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}

		return ranked[i].Key < ranked[j].Key
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	return ranked
}
