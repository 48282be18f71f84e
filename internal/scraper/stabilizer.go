package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/dispensary-scraper/internal/ratelimit"
	"github.com/maltedev/dispensary-scraper/internal/render"
)

const (
	scrollHeightScript   = "() => document.body.scrollHeight"
	scrollToBottomScript = "() => window.scrollTo(0, document.body.scrollHeight)"
)

type StabilizerOptions struct {
	AgeGateSelector string
	AgeGateTimeout  time.Duration
	// AgeGateSettle is the pause after confirming the gate.
	AgeGateSettle  time.Duration
	ScrollInterval ratelimit.Interval
	// MaxScrolls and MaxScrollDuration bound the scroll loop; zero means
	// no bound.
	MaxScrolls        int
	MaxScrollDuration time.Duration
}

func DefaultStabilizerOptions() StabilizerOptions {
	return StabilizerOptions{
		AgeGateSelector:   `button.age-gate__submit--yes[data-submit="yes"]`,
		AgeGateTimeout:    5 * time.Second,
		AgeGateSettle:     2 * time.Second,
		ScrollInterval:    ratelimit.Interval{Min: 2 * time.Second, Max: 2500 * time.Millisecond},
		MaxScrolls:        200,
		MaxScrollDuration: 10 * time.Minute,
	}
}

// Stabilizer brings a freshly loaded listing into a state where every card
// is rendered: past the age gate and scrolled until the page stops growing.
type Stabilizer struct {
	opts   StabilizerOptions
	logger *slog.Logger
	now    func() time.Time
}

func NewStabilizer(opts StabilizerOptions, logger *slog.Logger) *Stabilizer {
	return &Stabilizer{
		opts:   opts,
		logger: logger.With("component", "stabilizer"),
		now:    time.Now,
	}
}

// DismissAgeGate confirms the age gate if it shows up within the timeout.
// A missing gate is not an error; only cancellation is reported.
func (s *Stabilizer) DismissAgeGate(ctx context.Context, page render.Page) (bool, error) {
	s.logger.Debug("checking for age gate")

	button, err := page.WaitForVisible(ctx, s.opts.AgeGateSelector, s.opts.AgeGateTimeout)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if !errors.Is(err, render.ErrTimeout) {
			s.logger.Warn("age gate probe failed", "error", err)
		}
		return false, nil
	}

	s.logger.Info("age gate detected, confirming")
	if err := button.Click(); err != nil {
		s.logger.Warn("failed to confirm age gate", "error", err)
		return false, nil
	}

	if err := page.Pause(ctx, s.opts.AgeGateSettle); err != nil {
		return true, err
	}
	return true, nil
}

// ScrollToExhaustion scrolls to the bottom until two consecutive height
// measurements agree, and returns the number of scroll commands issued.
func (s *Stabilizer) ScrollToExhaustion(ctx context.Context, page render.Page) (int, error) {
	s.logger.Debug("scrolling to load all cards")

	last, err := s.measure(ctx, page)
	if err != nil {
		return 0, err
	}

	start := s.now()
	scrolls := 0
	for {
		if _, err := page.Evaluate(ctx, scrollToBottomScript); err != nil {
			return scrolls, fmt.Errorf("failed to scroll: %w", err)
		}
		scrolls++

		if err := page.Pause(ctx, s.opts.ScrollInterval.Next()); err != nil {
			return scrolls, err
		}

		height, err := s.measure(ctx, page)
		if err != nil {
			return scrolls, err
		}
		if height == last {
			s.logger.Debug("page height settled", "height", height, "scrolls", scrolls)
			return scrolls, nil
		}
		last = height

		if s.opts.MaxScrolls > 0 && scrolls >= s.opts.MaxScrolls {
			s.logger.Warn("scroll limit reached before page settled", "scrolls", scrolls, "height", height)
			return scrolls, nil
		}
		if s.opts.MaxScrollDuration > 0 && s.now().Sub(start) >= s.opts.MaxScrollDuration {
			s.logger.Warn("scroll time limit reached before page settled", "scrolls", scrolls, "height", height)
			return scrolls, nil
		}
	}
}

func (s *Stabilizer) measure(ctx context.Context, page render.Page) (float64, error) {
	result, err := page.Evaluate(ctx, scrollHeightScript)
	if err != nil {
		return 0, fmt.Errorf("failed to measure page height: %w", err)
	}

	switch v := result.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: scroll height is %T", ErrUnexpectedJS, result)
	}
}
