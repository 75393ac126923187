package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
	"github.com/sony/gobreaker"
)

// PyPIStatsProvider fetches daily download counts from pypistats.org.
// Downloads are a delta-style source: each observation is the count for
// that day.
type PyPIStatsProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewPyPIStatsProvider(client *http.Client) *PyPIStatsProvider {
	return &PyPIStatsProvider{
		name:    "pypistats",
		baseURL: "https://pypistats.org/api",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newCircuit("pypistats"),
	}
}

func (p *PyPIStatsProvider) Name() string {
	return p.name
}

// overallPayload mirrors the /api/packages/{name}/overall response.
type overallPayload struct {
	Data []struct {
		Category  string `json:"category"`
		Date      string `json:"date"`
		Downloads int64  `json:"downloads"`
	} `json:"data"`
	Package string `json:"package"`
}

func (p *PyPIStatsProvider) fetchOverall(ctx context.Context, pkg metrics.Package) (overallPayload, error) {
	var payload overallPayload

	if pkg.Name == "" {
		return payload, fmt.Errorf("package name is required")
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/packages/%s/overall", p.baseURL, pkg.Name)
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return payload, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// FetchSeries returns the daily download series for the package.
// pypistats reports every day twice, with and without mirror traffic;
// mirror downloads are excluded to avoid double counting.
func (p *PyPIStatsProvider) FetchSeries(ctx context.Context, pkg metrics.Package) ([]metrics.Series, error) {
	payload, err := p.fetchOverall(ctx, pkg)
	if err != nil {
		return nil, err
	}

	series := metrics.Series{Source: metrics.SourcePyPIDownloads}
	for _, row := range payload.Data {
		if row.Category != "without_mirrors" {
			continue
		}
		date, err := time.Parse(metrics.DateFormat, row.Date)
		if err != nil {
			return nil, fmt.Errorf("pypistats returned bad date %q: %w", row.Date, err)
		}
		series.Observations = append(series.Observations, metrics.Observation{
			Date:   date,
			Value:  row.Downloads,
			Source: metrics.SourcePyPIDownloads,
		})
	}

	return []metrics.Series{series}, nil
}

// FetchOverview reports the lifetime download total, summed over the
// same daily data the series is built from.
func (p *PyPIStatsProvider) FetchOverview(ctx context.Context, pkg metrics.Package) (metrics.Overview, error) {
	payload, err := p.fetchOverall(ctx, pkg)
	if err != nil {
		return metrics.Overview{}, err
	}

	var total int64
	for _, row := range payload.Data {
		if row.Category == "without_mirrors" {
			total += row.Downloads
		}
	}

	return metrics.Overview{
		Package:           pkg,
		LifetimeDownloads: total,
		FetchedAt:         time.Now().UTC(),
	}, nil
}
