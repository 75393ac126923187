package metrics

import (
	"context"
)

// Provider abstracts a metric source (e.g. pypistats.org, the GitHub
// API). One provider may return several series for a package.
type Provider interface {
	Name() string
	FetchSeries(ctx context.Context, pkg Package) ([]Series, error)
}

// OverviewProvider is implemented by providers that can also supply
// headline package data (totals, repository metadata).
type OverviewProvider interface {
	FetchOverview(ctx context.Context, pkg Package) (Overview, error)
}

// ReleaseProvider is implemented by providers that can supply release
// history.
type ReleaseProvider interface {
	FetchReleases(ctx context.Context, pkg Package) ([]Release, error)
}

// Store is the contract the in-memory store (and any future persistent
// store) must satisfy.
type Store interface {
	SaveSeries(pkg Package, series Series)
	GetSeries(pkg Package, source Source, r DateRange) (Series, error)
	SaveOverview(pkg Package, overview Overview)
	GetOverview(pkg Package) (Overview, error)
	SaveReleases(pkg Package, releases []Release)
	GetReleases(pkg Package) ([]Release, error)
}
