// internal/walker/walker.go

// Package walker executes form-walking steps against one browser session.
// Every step locates its elements with a bounded poll, acts on them and
// optionally advances the form through its next-button control.
package walker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/driver"
	"github.com/xkilldash9x/formwalk/internal/locator"
)

// Walker holds a session and its wait policy. It is not safe for concurrent
// use; a scenario owns its walker.
type Walker struct {
	d       driver.Driver
	logger  *zap.Logger
	timeout time.Duration
	poll    time.Duration
	hook    Hook
}

// New creates a walker over d.
func New(d driver.Driver, logger *zap.Logger, opts ...Option) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Walker{
		d:       d,
		logger:  logger.Named("walker"),
		timeout: DefaultTimeout,
		poll:    DefaultPollInterval,
		hook:    NopHook,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Timeout returns the wait budget of a single locate.
func (w *Walker) Timeout() time.Duration { return w.timeout }

// pollFor runs check until it reports true or the wait budget elapses. Running
// out of budget is reported as false, not as an error; only a failing
// session or a canceled ctx produce errors.
func (w *Walker) pollFor(ctx context.Context, q locator.Query, check func(context.Context) (bool, error)) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		found, err := check(waitCtx)
		if err != nil && waitCtx.Err() != nil && ctx.Err() == nil {
			// The budget ran out mid-check. Drivers report that as a deadline
			// or as a plain cancellation, so any error counts as absence.
			found, err = false, nil
		}
		w.capture(ctx, Attempt{Query: q, Number: attempt, Found: found})
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-waitCtx.Done():
			w.logger.Debug("Wait budget exhausted.", zap.String("target", q.Description), zap.Int("attempts", attempt))
			return false, nil
		case <-ticker.C:
		}
	}
}

// lookup is the found-or-absent check behind every step.
func (w *Walker) lookup(ctx context.Context, q locator.Query) (driver.Element, bool, error) {
	var match driver.Element
	found, err := w.pollFor(ctx, q, func(ctx context.Context) (bool, error) {
		els, err := w.d.FindAll(ctx, q.XPath)
		if err != nil {
			return false, err
		}
		for _, el := range els {
			if q.Condition == locator.Present {
				match = el
				return true, nil
			}
			ok, err := driver.Clickable(ctx, el)
			if err != nil {
				return false, err
			}
			if ok {
				match = el
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	return match, true, nil
}

// capture runs the diagnostics hook.
func (w *Walker) capture(ctx context.Context, a Attempt) {
	if err := w.hook(ctx, w.d, a); err != nil {
		w.logger.Warn("Diagnostics hook failed.", zap.String("target", a.Query.Description), zap.Error(err))
	}
}

// require resolves q or returns the StepError explaining why it could not.
func (w *Walker) require(ctx context.Context, step string, q locator.Query) (driver.Element, error) {
	el, ok, err := w.lookup(ctx, q)
	if err != nil {
		return nil, &StepError{Step: step, Target: q.Description, Err: sessionError(err)}
	}
	if !ok {
		return nil, &StepError{Step: step, Target: q.Description, Err: ErrElementNotFound}
	}
	return el, nil
}

// click resolves q and clicks it.
func (w *Walker) click(ctx context.Context, step string, q locator.Query) error {
	el, err := w.require(ctx, step, q)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return &StepError{Step: step, Target: q.Description, Err: sessionError(err)}
	}
	return nil
}

// Advance clicks the next-button control once it is clickable and waits
// for the following page to be ready.
func (w *Walker) Advance(ctx context.Context) error {
	const step = "advance"
	q := locator.NextButton()
	if err := w.click(ctx, step, q); err != nil {
		return err
	}

	readyCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.d.Ready(readyCtx); err != nil {
		return &StepError{Step: step, Target: "page load", Err: sessionError(err)}
	}
	w.logger.Debug("Advanced.")
	return nil
}

// finish advances when the step asked for it.
func (w *Walker) finish(ctx context.Context, c stepConfig) error {
	if !c.advance {
		return nil
	}
	return w.Advance(ctx)
}
