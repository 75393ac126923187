package metrics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Service orchestrates fetching from providers and answering aggregation
// queries. Queries are stateless: every call aligns fresh from the
// stored raw observations.
type Service struct {
	store     Store
	providers []Provider
	packages  []Package
}

// NewService creates a new Service for the given tracked packages.
func NewService(store Store, providers []Provider, packages []Package) *Service {
	return &Service{
		store:     store,
		providers: providers,
		packages:  packages,
	}
}

// Packages returns the tracked packages.
func (s *Service) Packages() []Package {
	out := make([]Package, len(s.packages))
	copy(out, s.packages)
	return out
}

// PackageByName finds a tracked package by its PyPI name.
func (s *Service) PackageByName(name string) (Package, bool) {
	for _, p := range s.packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// FetchAndStore fetches data from all providers concurrently for the
// given package and persists whatever succeeded. Partial success is
// fine; a provider failure is logged and skipped.
func (s *Service) FetchAndStore(ctx context.Context, pkg Package) error {
	if len(s.providers) == 0 {
		return fmt.Errorf("no metric providers configured")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		series    []Series
		overview  Overview
		releases  []Release
		succeeded int
	)
	overview.Package = pkg

	for _, p := range s.providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			fetched, err := p.FetchSeries(ctx, pkg)
			if err != nil {
				// Log and continue; we want partial success when possible.
				log.Printf("provider %s series fetch failed for %s: %v", p.Name(), pkg.Key(), err)
			} else {
				mu.Lock()
				series = append(series, fetched...)
				succeeded++
				mu.Unlock()
			}

			if op, ok := p.(OverviewProvider); ok {
				ov, err := op.FetchOverview(ctx, pkg)
				if err != nil {
					log.Printf("provider %s overview fetch failed for %s: %v", p.Name(), pkg.Key(), err)
				} else {
					mu.Lock()
					overview = overview.Merge(ov)
					mu.Unlock()
				}
			}

			if rp, ok := p.(ReleaseProvider); ok {
				rels, err := rp.FetchReleases(ctx, pkg)
				if err != nil {
					log.Printf("provider %s release fetch failed for %s: %v", p.Name(), pkg.Key(), err)
				} else if len(rels) > 0 {
					mu.Lock()
					releases = rels
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	if succeeded == 0 {
		// No providers succeeded; keep whatever history we already have.
		log.Printf("no successful provider fetches for %s; keeping existing data", pkg.Key())
		return nil
	}

	for _, sr := range series {
		s.store.SaveSeries(pkg, sr)
	}
	if overview.FetchedAt.IsZero() {
		overview.FetchedAt = time.Now().UTC()
	}
	s.store.SaveOverview(pkg, overview)
	if len(releases) > 0 {
		s.store.SaveReleases(pkg, releases)
	}

	return nil
}

// SeriesQuery describes one aggregation request.
type SeriesQuery struct {
	Source      Source
	Range       DateRange
	Granularity Granularity

	// Window enables moving-average smoothing when >= 1; zero leaves
	// the field unpopulated.
	Window int
}

// QuerySeries aligns the stored observations for one source onto the
// requested grid, optionally smoothed with a trailing moving average.
func (s *Service) QuerySeries(pkg Package, q SeriesQuery) ([]AggregatedPoint, error) {
	raw, err := s.store.GetSeries(pkg, q.Source, q.Range)
	if err != nil {
		return nil, err
	}

	points, err := Align(raw, q.Range, q.Granularity)
	if err != nil {
		return nil, err
	}

	if q.Window > 0 {
		return MovingAverage(points, q.Window)
	}
	return points, nil
}

// QueryCombined aligns two sources onto the same grid and zips them for
// dual-axis display.
func (s *Service) QueryCombined(pkg Package, srcA, srcB Source, r DateRange, g Granularity) ([]CombinedPoint, error) {
	a, err := s.QuerySeries(pkg, SeriesQuery{Source: srcA, Range: r, Granularity: g})
	if err != nil {
		return nil, err
	}
	b, err := s.QuerySeries(pkg, SeriesQuery{Source: srcB, Range: r, Granularity: g})
	if err != nil {
		return nil, err
	}
	return Combine(a, b)
}

// QuerySummary computes the key-metric card values for one source from
// a daily alignment over the range.
func (s *Service) QuerySummary(pkg Package, source Source, r DateRange) (Summary, error) {
	points, err := s.QuerySeries(pkg, SeriesQuery{Source: source, Range: r, Granularity: GranularityDaily})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(points), nil
}

// GetOverview delegates to the underlying store.
func (s *Service) GetOverview(pkg Package) (Overview, error) {
	return s.store.GetOverview(pkg)
}

// GetReleases delegates to the underlying store.
func (s *Service) GetReleases(pkg Package) ([]Release, error) {
	return s.store.GetReleases(pkg)
}
