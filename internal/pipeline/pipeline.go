// Package pipeline runs the import steps: collect feed items, fetch
// missing texts and drop stale cached statistics.
package pipeline

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/storystats/internal/cache"
	"github.com/TobiSchelling/storystats/internal/collect"
	"github.com/TobiSchelling/storystats/internal/config"
	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/fetch"
	"github.com/TobiSchelling/storystats/internal/logger"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
}

// Failed reports whether any step failed.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates the import steps.
type Pipeline struct {
	cfg   *config.Config
	db    *database.DB
	cache cache.Cache
	log   *logger.Logger
}

// New creates a new pipeline. A nil cache disables the refresh step.
func New(cfg *config.Config, db *database.DB, c cache.Cache, log *logger.Logger) *Pipeline {
	if c == nil {
		c = cache.Noop{}
	}
	return &Pipeline{cfg: cfg, db: db, cache: c, log: log.Component("pipeline")}
}

// Run executes collect, fetch and refresh in order. daysBack limits the
// collected feed items; zero takes everything.
func (p *Pipeline) Run(ctx context.Context, daysBack int) *Result {
	r := &Result{}

	step := p.runCollect(ctx, daysBack)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runFetch(ctx))
	r.Steps = append(r.Steps, p.runRefresh(ctx))
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(ctx context.Context) *Result {
	r := &Result{}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d feeds configured", len(p.cfg.Import.Feeds)),
	})

	needing, err := p.db.GetStoriesNeedingText(ctx)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d stories need text", len(needing)),
		Err:     err,
	})

	r.Steps = append(r.Steps, StepResult{
		Name:    "Refresh",
		Summary: "[dry-run] Would invalidate cached statistics",
	})
	return r
}

func (p *Pipeline) runCollect(ctx context.Context, daysBack int) StepResult {
	p.log.Info("step 1/3: collecting stories")
	collector, err := collect.NewCollector(p.cfg, p.db, p.log)
	if err != nil {
		return StepResult{Name: "Collect", Err: err}
	}
	result := collector.Collect(ctx, daysBack)
	return StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("Found %d new stories (%d total, %d duplicates, %d failed)",
			result.NewStories, result.TotalFound, result.Duplicates, result.Failed),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	p.log.Info("step 2/3: fetching story text")
	fetcher := fetch.NewTextFetcher(p.db, p.cfg.Fetch.Timeout, p.cfg.Fetch.UserAgent, p.log)
	result, err := fetcher.FetchMissingText(ctx)
	if err != nil {
		return StepResult{Name: "Fetch", Err: err}
	}
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d texts, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runRefresh(ctx context.Context) StepResult {
	p.log.Info("step 3/3: refreshing statistics cache")
	if err := p.cache.Invalidate(ctx); err != nil {
		return StepResult{Name: "Refresh", Err: err}
	}
	return StepResult{Name: "Refresh", Summary: "Cached statistics invalidated"}
}
