package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/dispensary-scraper/internal/models"
	"github.com/maltedev/dispensary-scraper/internal/ratelimit"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

type Status string

const (
	StatusSucceeded Status = models.OutcomeSucceeded
	StatusFailed    Status = models.OutcomeFailed
)

// CategoryResult records how one category pass went.
type CategoryResult struct {
	Category  models.Category
	Status    Status
	AgeGate   bool
	Scrolls   int
	Found     int
	Extracted int
	Unusable  int
	Faulted   int
	Err       error
	Duration  time.Duration
}

// Report is the outcome of a whole run, before merging.
type Report struct {
	Products   []*models.Product
	Categories []CategoryResult
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Report) Failed() int {
	return r.Summary("").Failed()
}

// Summary converts the report into a run record. Products is left for the
// caller to fill in once the catalog has been merged.
func (r *Report) Summary(source string) *models.Run {
	run := models.NewRun(source, r.StartedAt)
	run.FinishedAt = r.FinishedAt

	for _, c := range r.Categories {
		outcome := models.CategoryOutcome{
			Label:     c.Category.Label,
			Status:    string(c.Status),
			Found:     c.Found,
			Extracted: c.Extracted,
			Unusable:  c.Unusable,
			Scrolls:   c.Scrolls,
			Duration:  c.Duration,
		}
		if c.Err != nil {
			outcome.Error = c.Err.Error()
		}
		run.Categories = append(run.Categories, outcome)
	}

	return run
}

type WalkerOptions struct {
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	CardSelectors     []string
	// CategoryDelay spaces category navigations; zero disables it.
	CategoryDelay ratelimit.Interval
}

func DefaultWalkerOptions() WalkerOptions {
	return WalkerOptions{
		NavigationTimeout: 60 * time.Second,
		ReadyTimeout:      20 * time.Second,
		CardSelectors:     DefaultCardSelectors(),
	}
}

// Walker visits categories one after another on a single page.
type Walker struct {
	extractor  Extractor
	stabilizer *Stabilizer
	limiter    *ratelimit.Limiter
	opts       WalkerOptions
	logger     *slog.Logger
}

func NewWalker(extractor Extractor, stabilizer *Stabilizer, opts WalkerOptions, logger *slog.Logger) *Walker {
	if len(opts.CardSelectors) == 0 {
		opts.CardSelectors = DefaultCardSelectors()
	}

	return &Walker{
		extractor:  extractor,
		stabilizer: stabilizer,
		limiter:    ratelimit.NewLimiter(opts.CategoryDelay),
		opts:       opts,
		logger:     logger.With("component", "walker"),
	}
}

// Run scrapes every category in order. A failing category is recorded in
// the report and the run moves on; only cancellation stops it early.
func (w *Walker) Run(ctx context.Context, page render.Page, categories []models.Category) (*Report, error) {
	report := &Report{StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	for _, category := range categories {
		if err := w.limiter.Wait(ctx); err != nil {
			return report, err
		}

		result, products := w.scrapeCategory(ctx, page, category)
		report.Categories = append(report.Categories, result)
		report.Products = append(report.Products, products...)

		if result.Status == StatusFailed {
			w.logger.Error("category failed", "category", category.Label, "error", result.Err)
		} else {
			w.logger.Info("category done", "category", category.Label, "added", result.Extracted, "scrolls", result.Scrolls)
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (w *Walker) scrapeCategory(ctx context.Context, page render.Page, category models.Category) (CategoryResult, []*models.Product) {
	start := time.Now()
	result := CategoryResult{Category: category, Status: StatusFailed}
	logger := w.logger.With("category", category.Label)

	fail := func(err error) (CategoryResult, []*models.Product) {
		result.Err = err
		result.Duration = time.Since(start)
		return result, nil
	}

	logger.Info("starting category", "url", category.URL)

	if err := page.Goto(ctx, category.URL, w.opts.NavigationTimeout); err != nil {
		return fail(err)
	}

	gate, err := w.stabilizer.DismissAgeGate(ctx, page)
	if err != nil {
		return fail(err)
	}
	result.AgeGate = gate

	if err := page.WaitForFunction(ctx, readinessScript(w.opts.CardSelectors), w.opts.ReadyTimeout); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrNotReady, err))
	}

	if result.Scrolls, err = w.stabilizer.ScrollToExhaustion(ctx, page); err != nil {
		return fail(err)
	}

	extraction, err := ExtractCards(ctx, page, w.opts.CardSelectors, w.extractor, category.Label, logger)
	if err != nil {
		return fail(err)
	}

	result.Status = StatusSucceeded
	result.Found = extraction.Found
	result.Extracted = len(extraction.Products)
	result.Unusable = extraction.Unusable
	result.Faulted = extraction.Faulted
	result.Duration = time.Since(start)
	return result, extraction.Products
}

// readinessScript is truthy once any card selector matches.
func readinessScript(selectors []string) string {
	checks := make([]string, 0, len(selectors))
	for _, selector := range selectors {
		quoted, _ := json.Marshal(selector)
		checks = append(checks, fmt.Sprintf("document.querySelector(%s)", quoted))
	}
	return "() => Boolean(" + strings.Join(checks, " || ") + ")"
}
