package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/i474232898/package-metrics-aggregation/internal/metrics"
)

// Scheduler periodically refreshes metric data for tracked packages.
// Besides keeping download counts current, the periodic run is what
// samples GitHub's current fork total into a snapshot series over time.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *metrics.Service
	packages  []metrics.Package
	interval  time.Duration
}

// New creates a new Scheduler.
func New(packages []metrics.Package, interval time.Duration, service *metrics.Service) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		packages:  packages,
		interval:  interval,
	}
}

// Start schedules the periodic job, runs it once immediately so the API
// has data right after boot, and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.packages) == 0 {
		log.Println("scheduler: no packages configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 360
	}

	job, err := s.scheduler.Every(minutes).Minutes().Do(s.refreshAll)
	if err != nil {
		return err
	}
	job.SingletonMode()

	s.scheduler.StartAsync()
	go s.refreshAll()
	return nil
}

func (s *Scheduler) refreshAll() {
	log.Println("scheduler: running metrics fetch job")

	var wg sync.WaitGroup
	for _, pkg := range s.packages {
		pkg := pkg
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if err := s.service.FetchAndStore(ctx, pkg); err != nil {
				log.Printf("scheduler: fetch failed for %s: %v", pkg.Key(), err)
			}
		}()
	}
	wg.Wait()
	log.Println("scheduler: completed metrics fetch job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
