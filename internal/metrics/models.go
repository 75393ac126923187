package metrics

import (
	"fmt"
	"time"
)

// Source identifies one external metric stream tracked for a package.
type Source string

const (
	SourcePyPIDownloads Source = "pypi_downloads"
	SourceGitHubStars   Source = "github_stars"
	SourceGitHubForks   Source = "github_forks"
	SourceGitHubCommits Source = "github_commits"
)

// SourceKind controls how observations combine inside a bucket.
type SourceKind string

const (
	// KindDelta sources accrue counts per day (downloads, commits):
	// bucket values are sums, missing days count as zero.
	KindDelta SourceKind = "delta"

	// KindSnapshot sources are running totals sampled over time (stars,
	// forks): the last value in a bucket wins, missing days carry the
	// previous value forward.
	KindSnapshot SourceKind = "snapshot"
)

// Kind returns the combination rule for the source.
func (s Source) Kind() SourceKind {
	switch s {
	case SourceGitHubStars, SourceGitHubForks:
		return KindSnapshot
	default:
		return KindDelta
	}
}

// ParseSource validates a user-supplied source name.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourcePyPIDownloads, SourceGitHubStars, SourceGitHubForks, SourceGitHubCommits:
		return Source(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Granularity selects the bucket width used for resampling.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity validates a user-supplied granularity. An empty string
// defaults to daily.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "":
		return GranularityDaily, nil
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedGranularity, s)
}

// Package is a tracked package: a PyPI project name paired with the
// GitHub repository that hosts it.
type Package struct {
	Name string `json:"name"` // PyPI project name
	Repo string `json:"repo"` // GitHub owner/repository
}

// Key returns a canonical string key for indexing this package in stores.
func (p Package) Key() string {
	return p.Name
}

// Observation is a single dated measurement produced by a provider.
// Dates are normalized to midnight UTC; values are non-negative counts.
type Observation struct {
	Date   time.Time `json:"date"`
	Value  int64     `json:"value"`
	Source Source    `json:"source"`
}

// Series is a time-ordered observation sequence for one source, with at
// most one observation per calendar day.
type Series struct {
	Source       Source        `json:"source"`
	Observations []Observation `json:"observations"`
}

// DateRange is a closed calendar interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate reports ErrInvalidRange when the range is inverted.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s after end %s",
			ErrInvalidRange, r.Start.Format(DateFormat), r.End.Format(DateFormat))
	}
	return nil
}

// AggregatedPoint is one resampled bucket, the unit the chart layer
// consumes. MovingAverage is populated by MovingAverage, nil otherwise.
type AggregatedPoint struct {
	BucketStart   time.Time `json:"bucketStart"`
	Value         float64   `json:"value"`
	MovingAverage *float64  `json:"movingAverage,omitempty"`
}

// CombinedPoint pairs two aligned series for dual-axis display.
type CombinedPoint struct {
	BucketStart time.Time `json:"bucketStart"`
	ValueA      float64   `json:"valueA"`
	ValueB      float64   `json:"valueB"`
}

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// Day truncates a timestamp to midnight UTC, the canonical observation
// date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
