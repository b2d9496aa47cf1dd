package mt

import (
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/docloc/internal/locale"
)

// call is one model request for a target locale.
type call struct {
	at     time.Time
	target locale.ID
	ms     int64
	failed bool
}

// Latency summarises call durations in milliseconds.
type Latency struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// LocaleStats is the translation activity for one target locale.
type LocaleStats struct {
	Latency
	FailedCalls int `json:"failed_calls"`

	Translated int64 `json:"units_translated"`
	Rejected   int64 `json:"units_rejected"`
	Missing    int64 `json:"units_missing"`
}

func (l *LocaleStats) addUnits(r Result) {
	l.Translated += int64(r.Translated)
	l.Rejected += int64(r.Rejected)
	l.Missing += int64(r.Missing)
}

// StatsSnapshot holds totals across locales plus one entry per target
// locale, keyed by its BCP-47 tag. Call figures cover the window; unit
// counts cover the life of the process.
type StatsSnapshot struct {
	LocaleStats
	ByLocale map[string]LocaleStats `json:"by_locale,omitempty"`
}

// LLMStats aggregates model calls and unit outcomes per target locale.
type LLMStats struct {
	mu     sync.Mutex
	maxAge time.Duration
	calls  []call
	units  map[locale.ID]*LocaleStats
}

// NewLLMStats keeps calls for maxAge, an hour when unset.
func NewLLMStats(maxAge time.Duration) *LLMStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LLMStats{
		calls:  make([]call, 0, 256),
		maxAge: maxAge,
		units:  make(map[locale.ID]*LocaleStats),
	}
}

// RecordCall adds one call for target. Negative durations count as zero.
func (s *LLMStats) RecordCall(target locale.ID, durationMs int64, failed bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.calls = append(s.calls, call{at: now, target: target, ms: max(durationMs, 0), failed: failed})
}

// AddUnits counts the outcome of one batch translated into target.
func (s *LLMStats) AddUnits(target locale.ID, r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[target]
	if !ok {
		u = &LocaleStats{}
		s.units[target] = u
	}
	u.addUnits(r)
}

// Snapshot aggregates the calls still inside the window.
func (s *LLMStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	var all []int64
	byLocale := make(map[locale.ID][]int64)
	failed := make(map[locale.ID]int)
	for _, c := range s.calls {
		all = append(all, c.ms)
		byLocale[c.target] = append(byLocale[c.target], c.ms)
		if c.failed {
			failed[c.target]++
		}
	}

	snap := StatsSnapshot{LocaleStats: LocaleStats{Latency: summarise(all)}}
	targets := make(map[locale.ID]bool)
	for t := range byLocale {
		targets[t] = true
	}
	for t := range s.units {
		targets[t] = true
	}
	if len(targets) > 0 {
		snap.ByLocale = make(map[string]LocaleStats, len(targets))
	}
	for t := range targets {
		ls := LocaleStats{Latency: summarise(byLocale[t]), FailedCalls: failed[t]}
		if u, ok := s.units[t]; ok {
			ls.Translated, ls.Rejected, ls.Missing = u.Translated, u.Rejected, u.Missing
		}
		snap.FailedCalls += ls.FailedCalls
		snap.Translated += ls.Translated
		snap.Rejected += ls.Rejected
		snap.Missing += ls.Missing
		snap.ByLocale[t.String()] = ls
	}
	return snap
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	s.calls = slices.DeleteFunc(s.calls, func(c call) bool { return c.at.Before(cutoff) })
}

func summarise(values []int64) Latency {
	if len(values) == 0 {
		return Latency{}
	}
	slices.Sort(values)
	var sum int64
	for _, v := range values {
		sum += v
	}
	return Latency{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
