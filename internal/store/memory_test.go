package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
)

func day(s string) time.Time {
	t, err := time.Parse(metrics.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func downloads(date string, value int64) metrics.Observation {
	return metrics.Observation{Date: day(date), Value: value, Source: metrics.SourcePyPIDownloads}
}

func TestSaveSeriesUpsertsByDate(t *testing.T) {
	s := NewMemoryStore(0, 0)
	pkg := metrics.Package{Name: "crewai"}

	s.SaveSeries(pkg, metrics.Series{
		Source:       metrics.SourcePyPIDownloads,
		Observations: []metrics.Observation{downloads("2024-03-01", 10), downloads("2024-03-02", 20)},
	})
	// Overlapping refetch with a corrected value for the 2nd.
	s.SaveSeries(pkg, metrics.Series{
		Source:       metrics.SourcePyPIDownloads,
		Observations: []metrics.Observation{downloads("2024-03-02", 25), downloads("2024-03-03", 30)},
	})

	r := metrics.DateRange{Start: day("2024-03-01"), End: day("2024-03-31")}
	got, err := s.GetSeries(pkg, metrics.SourcePyPIDownloads, r)
	require.NoError(t, err)
	require.Len(t, got.Observations, 3)

	assert.Equal(t, int64(10), got.Observations[0].Value)
	assert.Equal(t, int64(25), got.Observations[1].Value)
	assert.Equal(t, int64(30), got.Observations[2].Value)

	// Dates stay sorted ascending.
	for i := 1; i < len(got.Observations); i++ {
		assert.True(t, got.Observations[i-1].Date.Before(got.Observations[i].Date))
	}
}

func TestGetSeriesClipsToRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	pkg := metrics.Package{Name: "crewai"}

	s.SaveSeries(pkg, metrics.Series{
		Source: metrics.SourcePyPIDownloads,
		Observations: []metrics.Observation{
			downloads("2024-03-01", 1),
			downloads("2024-03-05", 5),
			downloads("2024-03-09", 9),
		},
	})

	r := metrics.DateRange{Start: day("2024-03-02"), End: day("2024-03-08")}
	got, err := s.GetSeries(pkg, metrics.SourcePyPIDownloads, r)
	require.NoError(t, err)
	require.Len(t, got.Observations, 1)
	assert.Equal(t, int64(5), got.Observations[0].Value)
}

func TestGetSeriesNotFound(t *testing.T) {
	s := NewMemoryStore(0, 0)
	pkg := metrics.Package{Name: "crewai"}
	r := metrics.DateRange{Start: day("2024-03-01"), End: day("2024-03-02")}

	_, err := s.GetSeries(pkg, metrics.SourcePyPIDownloads, r)
	assert.ErrorIs(t, err, ErrNotFound)

	// A known package with an unfetched source is still not found.
	s.SaveSeries(pkg, metrics.Series{
		Source:       metrics.SourcePyPIDownloads,
		Observations: []metrics.Observation{downloads("2024-03-01", 1)},
	})
	_, err = s.GetSeries(pkg, metrics.SourceGitHubStars, r)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	pkg := metrics.Package{Name: "crewai"}

	s.SaveSeries(pkg, metrics.Series{
		Source: metrics.SourcePyPIDownloads,
		Observations: []metrics.Observation{
			downloads("2024-03-01", 1),
			downloads("2024-03-02", 2),
			downloads("2024-03-03", 3),
		},
	})

	r := metrics.DateRange{Start: day("2024-03-01"), End: day("2024-03-31")}
	got, err := s.GetSeries(pkg, metrics.SourcePyPIDownloads, r)
	require.NoError(t, err)
	require.Len(t, got.Observations, 2)

	// The newest observations survive.
	assert.Equal(t, day("2024-03-02"), got.Observations[0].Date)
	assert.Equal(t, day("2024-03-03"), got.Observations[1].Date)
}

func TestRetentionByAge(t *testing.T) {
	s := NewMemoryStore(0, 48*time.Hour)
	pkg := metrics.Package{Name: "crewai"}

	today := metrics.Day(time.Now().UTC())
	s.SaveSeries(pkg, metrics.Series{
		Source: metrics.SourcePyPIDownloads,
		Observations: []metrics.Observation{
			{Date: today.AddDate(0, 0, -10), Value: 1, Source: metrics.SourcePyPIDownloads},
			{Date: today, Value: 2, Source: metrics.SourcePyPIDownloads},
		},
	})

	r := metrics.DateRange{Start: today.AddDate(0, 0, -30), End: today}
	got, err := s.GetSeries(pkg, metrics.SourcePyPIDownloads, r)
	require.NoError(t, err)
	require.Len(t, got.Observations, 1)
	assert.Equal(t, today, got.Observations[0].Date)
}

func TestOverviewMergeAcrossSaves(t *testing.T) {
	s := NewMemoryStore(0, 0)
	pkg := metrics.Package{Name: "crewai", Repo: "crewAIInc/crewAI"}

	s.SaveOverview(pkg, metrics.Overview{Package: pkg, Stars: 1000})
	s.SaveOverview(pkg, metrics.Overview{Package: pkg, LifetimeDownloads: 9000})

	got, err := s.GetOverview(pkg)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Stars)
	assert.Equal(t, int64(9000), got.LifetimeDownloads)

	_, err = s.GetOverview(metrics.Package{Name: "other"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleasesRoundTrip(t *testing.T) {
	s := NewMemoryStore(0, 0)
	pkg := metrics.Package{Name: "crewai"}

	_, err := s.GetReleases(pkg)
	assert.ErrorIs(t, err, ErrNotFound)

	rels := []metrics.Release{{TagName: "v1.0.0"}, {TagName: "v0.9.0"}}
	s.SaveReleases(pkg, rels)

	got, err := s.GetReleases(pkg)
	require.NoError(t, err)
	assert.Equal(t, rels, got)
}
