package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
)

type AppConfig struct {
	// GitHubToken authorizes GitHub API calls; unauthenticated requests
	// hit a much lower rate limit but still work.
	GitHubToken string

	// FetchInterval controls how often we refresh data for each package.
	FetchInterval time.Duration

	// Packages to track.
	Packages []metrics.Package

	// In-memory store retention.
	StoreMaxPoints int           // max observations per package and source (0 = unlimited)
	StoreMaxAge    time.Duration // max age of observations (0 = unlimited)

	// HTTPTimeout applies to outbound provider calls.
	HTTPTimeout time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")

	// Download stats update daily; default to refreshing four times a day.
	intervalStr := getenvDefault("FETCH_INTERVAL", "6h")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	// Store retention: about two years of daily observations.
	cfg.StoreMaxPoints = getenvInt("STORE_MAX_POINTS", 730)

	maxAgeStr := getenvDefault("STORE_MAX_AGE", "17520h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.Port = getenvDefault("PORT", "8080")

	pkgs, err := loadPackages()
	if err != nil {
		return nil, err
	}
	cfg.Packages = pkgs

	return cfg, nil
}

// loadPackages pairs PYPI_PACKAGES with GITHUB_REPOS positionally, e.g.
// PYPI_PACKAGES=crewai,langgraph and
// GITHUB_REPOS=crewAIInc/crewAI,langchain-ai/langgraph.
func loadPackages() ([]metrics.Package, error) {
	names := splitList(os.Getenv("PYPI_PACKAGES"))
	repos := splitList(os.Getenv("GITHUB_REPOS"))

	if len(names) == 0 {
		return nil, fmt.Errorf("PYPI_PACKAGES must list at least one package")
	}
	if len(names) != len(repos) {
		return nil, fmt.Errorf("number of packages and github repos must be the same")
	}

	var pkgs []metrics.Package
	for i := range names {
		pkgs = append(pkgs, metrics.Package{
			Name: names[i],
			Repo: repos[i],
		})
	}

	return pkgs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
