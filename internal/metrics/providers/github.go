package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
	"github.com/sony/gobreaker"
)

// maxStarPages bounds stargazer pagination (100 stars per page). Repos
// beyond this get a truncated history; the current total from the repo
// endpoint keeps the latest value correct regardless.
const maxStarPages = 400

// GitHubProvider fetches repository metrics from the GitHub REST API:
// star history from timestamped stargazers, daily commit counts from
// the commit-activity statistics, and current totals from the
// repository endpoint.
//
// GitHub exposes no fork history, only the current total, so the fork
// series grows one observation per fetch; the scheduler sampling it
// periodically is what builds a usable snapshot series over time.
type GitHubProvider struct {
	name    string
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGitHubProvider(client *http.Client, token string) *GitHubProvider {
	return &GitHubProvider{
		name:    "github",
		token:   token,
		baseURL: "https://api.github.com",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newCircuit("github"),
	}
}

func (p *GitHubProvider) Name() string {
	return p.name
}

// get performs one GitHub API request and decodes the JSON response
// into out. accept overrides the media type when non-empty.
func (p *GitHubProvider) get(ctx context.Context, path string, query url.Values, accept string, out interface{}) error {
	buildRequest := func() (*http.Request, error) {
		u := p.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		} else {
			req.Header.Set("Accept", "application/vnd.github.v3+json")
		}
		if p.token != "" {
			req.Header.Set("Authorization", "Bearer "+p.token)
		}
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}

type repoPayload struct {
	Stargazers int64  `json:"stargazers_count"`
	Forks      int64  `json:"forks_count"`
	OpenIssues int64  `json:"open_issues_count"`
	Watchers   int64  `json:"watchers_count"`
	Language   string `json:"language"`
	Desc       string `json:"description"`
	License    struct {
		Name string `json:"name"`
	} `json:"license"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *GitHubProvider) fetchRepo(ctx context.Context, pkg metrics.Package) (repoPayload, error) {
	var repo repoPayload
	if pkg.Repo == "" {
		return repo, fmt.Errorf("github repository is required")
	}
	err := p.get(ctx, "/repos/"+pkg.Repo, nil, "", &repo)
	return repo, err
}

// FetchSeries returns the star, fork and commit series for the
// package's repository.
func (p *GitHubProvider) FetchSeries(ctx context.Context, pkg metrics.Package) ([]metrics.Series, error) {
	repo, err := p.fetchRepo(ctx, pkg)
	if err != nil {
		return nil, err
	}

	today := metrics.Day(time.Now().UTC())

	stars, err := p.fetchStarHistory(ctx, pkg)
	if err != nil {
		return nil, err
	}
	// The repo endpoint has the authoritative current total; it also
	// papers over a truncated stargazer history on very large repos.
	stars.Observations = upsertObservation(stars.Observations, metrics.Observation{
		Date:   today,
		Value:  repo.Stargazers,
		Source: metrics.SourceGitHubStars,
	})

	forks := metrics.Series{
		Source: metrics.SourceGitHubForks,
		Observations: []metrics.Observation{
			{Date: today, Value: repo.Forks, Source: metrics.SourceGitHubForks},
		},
	}

	commits, err := p.fetchCommitActivity(ctx, pkg)
	if err != nil {
		return nil, err
	}

	return []metrics.Series{stars, forks, commits}, nil
}

// fetchStarHistory paginates the stargazers endpoint with the
// star+json media type, buckets starred_at timestamps per day, and
// accumulates them into a snapshot-style running total.
func (p *GitHubProvider) fetchStarHistory(ctx context.Context, pkg metrics.Package) (metrics.Series, error) {
	series := metrics.Series{Source: metrics.SourceGitHubStars}

	perDay := make(map[time.Time]int64)
	var days []time.Time

	for page := 1; page <= maxStarPages; page++ {
		var batch []struct {
			StarredAt time.Time `json:"starred_at"`
		}

		query := url.Values{}
		query.Set("per_page", "100")
		query.Set("page", fmt.Sprintf("%d", page))

		err := p.get(ctx, "/repos/"+pkg.Repo+"/stargazers", query, "application/vnd.github.star+json", &batch)
		if err != nil {
			return series, err
		}
		if len(batch) == 0 {
			break
		}

		for _, star := range batch {
			d := metrics.Day(star.StarredAt)
			if _, ok := perDay[d]; !ok {
				days = append(days, d)
			}
			perDay[d]++
		}

		if len(batch) < 100 {
			break
		}
	}

	// Stargazers arrive oldest first, so the running total is a plain
	// prefix sum over the per-day counts.
	var total int64
	for _, d := range days {
		total += perDay[d]
		series.Observations = append(series.Observations, metrics.Observation{
			Date:   d,
			Value:  total,
			Source: metrics.SourceGitHubStars,
		})
	}

	return series, nil
}

// fetchCommitActivity turns the last year of weekly commit statistics
// into daily delta observations using the per-day breakdown GitHub
// includes with each week.
func (p *GitHubProvider) fetchCommitActivity(ctx context.Context, pkg metrics.Package) (metrics.Series, error) {
	series := metrics.Series{Source: metrics.SourceGitHubCommits}

	// GitHub answers 202 with an empty body while it computes the
	// statistics; treat that as no data rather than an error.
	var weeks []struct {
		Total int64   `json:"total"`
		Week  int64   `json:"week"`
		Days  []int64 `json:"days"`
	}
	err := p.get(ctx, "/repos/"+pkg.Repo+"/stats/commit_activity", nil, "", &weeks)
	if err != nil {
		if isEmptyJSON(err) {
			return series, nil
		}
		return series, err
	}

	for _, week := range weeks {
		weekStart := metrics.Day(time.Unix(week.Week, 0))
		for i, count := range week.Days {
			series.Observations = append(series.Observations, metrics.Observation{
				Date:   weekStart.AddDate(0, 0, i),
				Value:  count,
				Source: metrics.SourceGitHubCommits,
			})
		}
	}

	return series, nil
}

// FetchOverview returns the repository headline data.
func (p *GitHubProvider) FetchOverview(ctx context.Context, pkg metrics.Package) (metrics.Overview, error) {
	repo, err := p.fetchRepo(ctx, pkg)
	if err != nil {
		return metrics.Overview{}, err
	}

	return metrics.Overview{
		Package:     pkg,
		Description: repo.Desc,
		Language:    repo.Language,
		License:     repo.License.Name,
		CreatedAt:   repo.CreatedAt,
		UpdatedAt:   repo.UpdatedAt,
		Stars:       repo.Stargazers,
		Forks:       repo.Forks,
		OpenIssues:  repo.OpenIssues,
		Watchers:    repo.Watchers,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// FetchReleases returns the repository's release history, newest first
// as GitHub orders it.
func (p *GitHubProvider) FetchReleases(ctx context.Context, pkg metrics.Package) ([]metrics.Release, error) {
	if pkg.Repo == "" {
		return nil, fmt.Errorf("github repository is required")
	}

	var payload []struct {
		TagName     string    `json:"tag_name"`
		Name        string    `json:"name"`
		PublishedAt time.Time `json:"published_at"`
		Body        string    `json:"body"`
		HTMLURL     string    `json:"html_url"`
		Prerelease  bool      `json:"prerelease"`
	}

	query := url.Values{}
	query.Set("per_page", "100")
	if err := p.get(ctx, "/repos/"+pkg.Repo+"/releases", query, "", &payload); err != nil {
		return nil, err
	}

	releases := make([]metrics.Release, 0, len(payload))
	for _, rel := range payload {
		releases = append(releases, metrics.Release{
			TagName:     rel.TagName,
			Name:        rel.Name,
			PublishedAt: rel.PublishedAt,
			Body:        rel.Body,
			URL:         rel.HTMLURL,
			Prerelease:  rel.Prerelease,
		})
	}
	return releases, nil
}

// upsertObservation replaces the observation on obs's date or appends
// it, keeping the slice ordered by date.
func upsertObservation(observations []metrics.Observation, obs metrics.Observation) []metrics.Observation {
	for i := range observations {
		if observations[i].Date.Equal(obs.Date) {
			observations[i] = obs
			return observations
		}
	}
	return append(observations, obs)
}

// isEmptyJSON reports whether the decode error came from an empty
// response body (GitHub's 202 while statistics are being computed).
func isEmptyJSON(err error) bool {
	return errors.Is(err, io.EOF)
}
