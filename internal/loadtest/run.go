package loadtest

import (
	"context"
	"sync"
	"time"

	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/matching"
)

// RunConfig controls a load run.
type RunConfig struct {
	Requests    int           // total requests; 0 runs until ctx is done
	Concurrency int           // in-flight requests
	Timeout     time.Duration // per request; 0 means none
	Progress    time.Duration // progress log interval; 0 disables it
}

// Run sends requests produced by synth to target from Concurrency workers and
// records every outcome in c. It returns when all requests finished or ctx is
// cancelled.
func Run(ctx context.Context, target Target, synth *Synth, cfg RunConfig, c *Collector) {
	logger := logging.For("loadtest")
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				runOne(ctx, target, synth.Request, cfg.Timeout, c)
			}
		}()
	}

	stopProgress := make(chan struct{})
	var progressWg sync.WaitGroup
	if cfg.Progress > 0 {
		progressWg.Add(1)
		go func() {
			defer progressWg.Done()
			ticker := time.NewTicker(cfg.Progress)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					requests, errs := c.Counts()
					logger.Info().Int("requests", requests).Int("errors", errs).Msg("progress")
				case <-stopProgress:
					return
				}
			}
		}()
	}

feed:
	for sent := 0; cfg.Requests == 0 || sent < cfg.Requests; sent++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- struct{}{}:
		}
	}
	close(jobs)
	wg.Wait()
	close(stopProgress)
	progressWg.Wait()
}

// runOne records a single request. Requests aborted because the run itself
// was cancelled are not counted.
func runOne(ctx context.Context, target Target, next func() matching.Request, timeout time.Duration, c *Collector) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	n, err := target.Match(reqCtx, next())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.For("loadtest").Debug().Err(err).Msg("request failed")
		c.AddError()
		return
	}
	c.AddResult(time.Since(start), n)
}
