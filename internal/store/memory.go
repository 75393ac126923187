package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
)

var (
	// ErrNotFound is returned when no data is available for a given
	// package or source.
	ErrNotFound = errors.New("no metric data for package")
)

// MemoryStore is a concurrency-safe in-memory implementation of the
// metrics store. Observation series are kept sorted by date with at
// most one observation per day, so repeated fetches of overlapping
// ranges upsert instead of duplicating.
type MemoryStore struct {
	mu sync.RWMutex

	// key: package key -> source -> sorted observations
	series    map[string]map[metrics.Source][]metrics.Observation
	overviews map[string]metrics.Overview
	releases  map[string][]metrics.Release

	// retention configuration
	maxPoints int           // max observations per (package, source)
	maxAge    time.Duration // optional max age for observations
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// Non-positive limits are treated as unlimited.
func NewMemoryStore(maxPoints int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		series:    make(map[string]map[metrics.Source][]metrics.Observation),
		overviews: make(map[string]metrics.Overview),
		releases:  make(map[string][]metrics.Release),
		maxPoints: maxPoints,
		maxAge:    maxAge,
	}
}

// SaveSeries merges new observations into the stored series for the
// package, replacing values on matching dates, and enforces retention.
func (s *MemoryStore) SaveSeries(pkg metrics.Package, series metrics.Series) {
	key := pkg.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	bySource, ok := s.series[key]
	if !ok {
		bySource = make(map[metrics.Source][]metrics.Observation)
		s.series[key] = bySource
	}

	byDate := make(map[time.Time]metrics.Observation, len(bySource[series.Source])+len(series.Observations))
	for _, o := range bySource[series.Source] {
		byDate[o.Date] = o
	}
	for _, o := range series.Observations {
		d := metrics.Day(o.Date)
		byDate[d] = metrics.Observation{Date: d, Value: o.Value, Source: series.Source}
	}

	merged := make([]metrics.Observation, 0, len(byDate))
	for _, o := range byDate {
		merged = append(merged, o)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := metrics.Day(time.Now().UTC().Add(-s.maxAge))
		i := 0
		for ; i < len(merged); i++ {
			if !merged[i].Date.Before(cutoff) {
				break
			}
		}
		merged = merged[i:]
	}

	// Enforce retention by count, keeping the newest observations.
	if s.maxPoints > 0 && len(merged) > s.maxPoints {
		merged = merged[len(merged)-s.maxPoints:]
	}

	bySource[series.Source] = merged
}

// GetSeries returns the stored observations for a source clipped to the
// given range. ErrNotFound means the package/source pair has never been
// fetched; a known pair with nothing in the range yields an empty
// series (the aggregator gap-fills it).
func (s *MemoryStore) GetSeries(pkg metrics.Package, source metrics.Source, r metrics.DateRange) (metrics.Series, error) {
	key := pkg.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	bySource, ok := s.series[key]
	if !ok {
		return metrics.Series{}, ErrNotFound
	}
	all, ok := bySource[source]
	if !ok {
		return metrics.Series{}, ErrNotFound
	}

	start := metrics.Day(r.Start)
	end := metrics.Day(r.End)

	out := metrics.Series{Source: source}
	for _, o := range all {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		out.Observations = append(out.Observations, o)
	}
	return out, nil
}

// SaveOverview merges an overview into the stored one for the package.
func (s *MemoryStore) SaveOverview(pkg metrics.Package, overview metrics.Overview) {
	key := pkg.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.overviews[key]
	if !ok {
		existing = metrics.Overview{Package: pkg}
	}
	s.overviews[key] = existing.Merge(overview)
}

// GetOverview returns the most recently merged overview for a package.
func (s *MemoryStore) GetOverview(pkg metrics.Package) (metrics.Overview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overview, ok := s.overviews[pkg.Key()]
	if !ok {
		return metrics.Overview{}, ErrNotFound
	}
	return overview, nil
}

// SaveReleases replaces the stored release list for a package.
func (s *MemoryStore) SaveReleases(pkg metrics.Package, releases []metrics.Release) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releases[pkg.Key()] = append([]metrics.Release(nil), releases...)
}

// GetReleases returns the stored release list for a package.
func (s *MemoryStore) GetReleases(pkg metrics.Package) ([]metrics.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	releases, ok := s.releases[pkg.Key()]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]metrics.Release(nil), releases...), nil
}
