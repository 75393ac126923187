package metrics

import "time"

// Overview is the per-package headline data shown above the charts.
// Providers fill the fields they know about; the service merges partial
// overviews from different providers into one.
type Overview struct {
	Package     Package   `json:"package"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	License     string    `json:"license,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`

	Stars      int64 `json:"stars"`
	Forks      int64 `json:"forks"`
	OpenIssues int64 `json:"openIssues"`
	Watchers   int64 `json:"watchers"`

	// LifetimeDownloads is the all-time PyPI download total, independent
	// of any requested date range.
	LifetimeDownloads int64 `json:"lifetimeDownloads"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// Merge overlays the non-zero fields of other onto o. Later fetches win
// field by field, so partial overviews from different providers compose.
func (o Overview) Merge(other Overview) Overview {
	if other.Description != "" {
		o.Description = other.Description
	}
	if other.Language != "" {
		o.Language = other.Language
	}
	if other.License != "" {
		o.License = other.License
	}
	if !other.CreatedAt.IsZero() {
		o.CreatedAt = other.CreatedAt
	}
	if !other.UpdatedAt.IsZero() {
		o.UpdatedAt = other.UpdatedAt
	}
	if other.Stars > 0 {
		o.Stars = other.Stars
	}
	if other.Forks > 0 {
		o.Forks = other.Forks
	}
	if other.OpenIssues > 0 {
		o.OpenIssues = other.OpenIssues
	}
	if other.Watchers > 0 {
		o.Watchers = other.Watchers
	}
	if other.LifetimeDownloads > 0 {
		o.LifetimeDownloads = other.LifetimeDownloads
	}
	if other.FetchedAt.After(o.FetchedAt) {
		o.FetchedAt = other.FetchedAt
	}
	return o
}

// Release is one GitHub release, served as-is for the release history
// view.
type Release struct {
	TagName     string    `json:"tagName"`
	Name        string    `json:"name,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Body        string    `json:"body,omitempty"`
	URL         string    `json:"url,omitempty"`
	Prerelease  bool      `json:"prerelease"`
}

// Summary holds the key-metric card values for one source over a range,
// computed from a daily-aligned series.
type Summary struct {
	LatestDate      time.Time `json:"latestDate"`
	Latest          float64   `json:"latest"`
	DayChange       float64   `json:"dayChange"`
	Mean            float64   `json:"mean"`
	Peak            float64   `json:"peak"`
	RangeTotal      float64   `json:"rangeTotal"`
	TrailingWeekAvg float64   `json:"trailingWeekAvg"`
	PreviousWeekAvg float64   `json:"previousWeekAvg"`
	WeekChange      float64   `json:"weekChange"`
}

// Summarize computes headline statistics over an aligned daily series.
// An empty input yields a zero summary.
func Summarize(points []AggregatedPoint) Summary {
	var s Summary
	if len(points) == 0 {
		return s
	}

	last := points[len(points)-1]
	s.LatestDate = last.BucketStart
	s.Latest = last.Value
	if len(points) > 1 {
		s.DayChange = last.Value - points[len(points)-2].Value
	}

	var sum float64
	for _, p := range points {
		sum += p.Value
		if p.Value > s.Peak {
			s.Peak = p.Value
		}
	}
	s.RangeTotal = sum
	s.Mean = sum / float64(len(points))

	s.TrailingWeekAvg = tailMean(points, 0, 7)
	s.PreviousWeekAvg = tailMean(points, 7, 7)
	s.WeekChange = s.TrailingWeekAvg - s.PreviousWeekAvg

	return s
}

// tailMean averages n points ending offset buckets before the series
// end. Shorter tails average over what is available; an empty slice
// yields zero.
func tailMean(points []AggregatedPoint, offset, n int) float64 {
	hi := len(points) - offset
	if hi <= 0 {
		return 0
	}
	lo := hi - n
	if lo < 0 {
		lo = 0
	}

	var sum float64
	for _, p := range points[lo:hi] {
		sum += p.Value
	}
	return sum / float64(hi-lo)
}
