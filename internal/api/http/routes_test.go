package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
	"github.com/i474232898/package-metrics-aggregation/internal/store"
)

func newTestApp(t *testing.T) (*fiber.App, metrics.Package) {
	t.Helper()

	pkg := metrics.Package{Name: "crewai", Repo: "crewAIInc/crewAI"}
	memStore := store.NewMemoryStore(0, 0)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := metrics.Series{Source: metrics.SourcePyPIDownloads}
	for i := 0; i < 5; i++ {
		series.Observations = append(series.Observations, metrics.Observation{
			Date:   base.AddDate(0, 0, i),
			Value:  int64((i + 1) * 10),
			Source: metrics.SourcePyPIDownloads,
		})
	}
	memStore.SaveSeries(pkg, series)
	memStore.SaveSeries(pkg, metrics.Series{
		Source: metrics.SourceGitHubStars,
		Observations: []metrics.Observation{
			{Date: base, Value: 100, Source: metrics.SourceGitHubStars},
		},
	})

	svc := metrics.NewService(memStore, nil, []metrics.Package{pkg})

	app := fiber.New()
	RegisterRoutes(app, svc)
	return app, pkg
}

// TestSeriesEndpoint verifies the happy path: aligned points covering
// the range with the moving average populated.
func TestSeriesEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/packages/crewai/series?source=pypi_downloads&from=2024-03-01&to=2024-03-05&window=2", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Points []metrics.AggregatedPoint `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(body.Points))
	}
	if body.Points[0].Value != 10 {
		t.Fatalf("expected first value 10, got %v", body.Points[0].Value)
	}
	if body.Points[1].MovingAverage == nil || *body.Points[1].MovingAverage != 15 {
		t.Fatalf("expected moving average 15 on second point, got %v", body.Points[1].MovingAverage)
	}
}

// TestSeriesValidation verifies that missing or malformed query
// parameters return 400.
func TestSeriesValidation(t *testing.T) {
	app, _ := newTestApp(t)

	cases := []string{
		"/api/v1/packages/crewai/series?from=2024-03-01&to=2024-03-05",                           // missing source
		"/api/v1/packages/crewai/series?source=pypi_downloads&from=2024-03-01",                   // missing to
		"/api/v1/packages/crewai/series?source=pypi_downloads&from=bad&to=2024-03-05",            // bad date
		"/api/v1/packages/crewai/series?source=svn_checkouts&from=2024-03-01&to=2024-03-05",      // unknown source
		"/api/v1/packages/crewai/series?source=pypi_downloads&from=2024-03-05&to=2024-03-01",     // inverted range
		"/api/v1/packages/crewai/series?source=pypi_downloads&from=2024-03-01&to=2024-03-05&granularity=hourly",
		"/api/v1/packages/crewai/series?source=pypi_downloads&from=2024-03-01&to=2024-03-05&window=0",
	}

	for _, url := range cases {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", url, err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected status %d for %s, got %d", http.StatusBadRequest, url, resp.StatusCode)
		}
	}
}

// TestSeriesUnknownPackage verifies untracked packages return 404.
func TestSeriesUnknownPackage(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/packages/numpy/series?source=pypi_downloads&from=2024-03-01&to=2024-03-05", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

// TestSeriesUnfetchedSource verifies a tracked package with no data for
// the requested source returns 404.
func TestSeriesUnfetchedSource(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/packages/crewai/series?source=github_commits&from=2024-03-01&to=2024-03-05", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

// TestCombinedEndpoint verifies the dual-axis zip over two sources.
func TestCombinedEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/packages/crewai/combined?sourceA=pypi_downloads&sourceB=github_stars&from=2024-03-01&to=2024-03-03", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Points []metrics.CombinedPoint `json:"points"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(body.Points))
	}
	if body.Points[2].ValueA != 30 || body.Points[2].ValueB != 100 {
		t.Fatalf("unexpected third pair: %+v", body.Points[2])
	}
}

// TestSummaryEndpoint verifies the key-metric card values.
func TestSummaryEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/packages/crewai/summary?from=2024-03-01&to=2024-03-05", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Summary metrics.Summary `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Summary.Latest != 50 {
		t.Fatalf("expected latest 50, got %v", body.Summary.Latest)
	}
	if body.Summary.Peak != 50 {
		t.Fatalf("expected peak 50, got %v", body.Summary.Peak)
	}
	if body.Summary.RangeTotal != 150 {
		t.Fatalf("expected range total 150, got %v", body.Summary.RangeTotal)
	}
}

// TestPackagesEndpoint verifies the tracked package listing.
func TestPackagesEndpoint(t *testing.T) {
	app, pkg := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/packages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Packages []struct {
			Package metrics.Package `json:"package"`
		} `json:"packages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Packages) != 1 || body.Packages[0].Package.Name != pkg.Name {
		t.Fatalf("unexpected package listing: %+v", body.Packages)
	}
}

// TestReleasesEndpoint verifies release history is served as stored.
func TestReleasesEndpoint(t *testing.T) {
	pkg := metrics.Package{Name: "crewai", Repo: "crewAIInc/crewAI"}
	memStore := store.NewMemoryStore(0, 0)
	memStore.SaveReleases(pkg, []metrics.Release{{TagName: "v1.0.0"}})

	svc := metrics.NewService(memStore, nil, []metrics.Package{pkg})
	app := fiber.New()
	RegisterRoutes(app, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/packages/crewai/releases", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Releases []metrics.Release `json:"releases"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Releases) != 1 || body.Releases[0].TagName != "v1.0.0" {
		t.Fatalf("unexpected releases: %+v", body.Releases)
	}
}
