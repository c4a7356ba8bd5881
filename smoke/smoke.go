// Package smoke runs the owner details scenarios against a deployed application outside of go test.
package smoke

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/petclinic-e2e/ownerdetails"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Result struct {
	Scenario string
	Duration time.Duration
	Err      error
}

type Runner struct {
	Browser *rod.Browser
	BaseURL string
	OwnerID int

	// Concurrency is the maximum number of scenarios run at once. Values less than 1 mean 1.
	Concurrency int

	// Timeout is the locator timeout. Defaults to ownerdetails.DefaultTimeout.
	Timeout time.Duration
}

// Run runs scenarios, each in its own incognito browser context, and returns their results in the order of
// scenarios. A failed scenario does not stop the others.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	runID := uuid.Must(uuid.NewV7())
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID.String()).Str("base_url", r.BaseURL).Logger()

	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(scenarios))
	eg := &errgroup.Group{}
	eg.SetLimit(concurrency)
	for i, scenario := range scenarios {
		i, scenario := i, scenario
		eg.Go(func() error {
			start := time.Now()
			err := r.runScenario(ctx, scenario)
			results[i] = Result{Scenario: scenario.Name, Duration: time.Since(start), Err: err}

			event := logger.Info()
			if err != nil {
				event = logger.Error().Err(err)
			}
			event.Str("scenario", scenario.Name).Dur("duration", results[i].Duration).Msg("scenario finished")

			return nil
		})
	}
	eg.Wait()

	return results
}

func (r *Runner) runScenario(ctx context.Context, scenario Scenario) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	browser, err := r.Browser.Incognito()
	if err != nil {
		return fmt.Errorf("create incognito browser context: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	page = page.Context(ctx)

	opts := []ownerdetails.Option{}
	if r.Timeout > 0 {
		opts = append(opts, ownerdetails.WithTimeout(r.Timeout))
	}

	return scenario.Run(ctx, ownerdetails.New(page, r.BaseURL, opts...), r.OwnerID)
}

// Failed returns the results with an error.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
