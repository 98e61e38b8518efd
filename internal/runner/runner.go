// internal/runner/runner.go

// Package runner executes scenario suites. Every scenario gets its own
// browser session, which is released on every exit path.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/formwalk/internal/config"
	"github.com/xkilldash9x/formwalk/internal/driver"
	"github.com/xkilldash9x/formwalk/internal/scenario"
	"github.com/xkilldash9x/formwalk/internal/walker"
)

const defaultCloseTimeout = 10 * time.Second

// errStop cancels the remaining scenarios of a fail-fast run.
var errStop = errors.New("stopping after first failure")

// Option configures a Runner.
type Option func(*Runner)

// WithResultHandler registers fn to receive each result as soon as its
// scenario finishes. Calls are serialized.
func WithResultHandler(fn func(*Result)) Option {
	return func(r *Runner) { r.onResult = fn }
}

// Runner executes scenarios.
type Runner struct {
	factory driver.Factory
	cfg     config.RunnerConfig
	wcfg    config.WalkerConfig
	logger  *zap.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	onResult func(*Result)
}

// New creates a runner that opens sessions through factory.
func New(factory driver.Factory, cfg config.RunnerConfig, wcfg config.WalkerConfig, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaultCloseTimeout
	}

	limit := rate.Inf
	if cfg.SessionRate > 0 {
		limit = rate.Limit(cfg.SessionRate)
	}
	burst := cfg.SessionBurst
	if burst < 1 {
		burst = 1
	}

	r := &Runner{
		factory: factory,
		cfg:     cfg,
		wcfg:    wcfg,
		logger:  logger.Named("runner"),
		limiter: rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type job struct {
	suite *scenario.Suite
	sc    *scenario.Scenario
}

// Run executes every scenario of suites and returns the results in suite
// order. The error is non-nil only when ctx itself was canceled.
func (r *Runner) Run(ctx context.Context, suites ...*scenario.Suite) (*Summary, error) {
	start := time.Now()

	var jobs []job
	for _, s := range suites {
		for _, sc := range s.Scenarios {
			jobs = append(jobs, job{suite: s, sc: sc})
		}
	}
	r.logger.Info("Starting run.",
		zap.Int("scenarios", len(jobs)),
		zap.Int("concurrency", r.cfg.Concurrency),
		zap.String("driver", r.factory.Name()))

	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, j := range jobs {
		g.Go(func() error {
			res := r.runScenario(gctx, j.suite, j.sc)
			results[i] = res
			r.emit(res)
			if r.cfg.FailFast && (res.Status == StatusFailed || res.Status == StatusErrored) {
				return errStop
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errStop) {
		return nil, err
	}

	summary := newSummary(results, time.Since(start))
	r.logger.Info("Run finished.",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("errored", summary.Errored),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration))
	return summary, ctx.Err()
}

func (r *Runner) emit(res *Result) {
	if r.onResult == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult(res)
}

// runScenario walks one scenario in its own session.
func (r *Runner) runScenario(ctx context.Context, suite *scenario.Suite, sc *scenario.Scenario) (res *Result) {
	base := suite.BaseURL
	if r.cfg.BaseURL != "" {
		base = r.cfg.BaseURL
	}
	res = &Result{
		RunID:      uuid.New().String(),
		Suite:      suite.File,
		Scenario:   sc.Name,
		URL:        sc.URL(base),
		Driver:     r.factory.Name(),
		StepsTotal: len(sc.Steps),
		Started:    time.Now(),
	}
	logger := r.logger.With(zap.String("scenario", sc.Name), zap.String("run_id", res.RunID))
	defer func() {
		res.Duration = time.Since(res.Started)
		logger.Info("Scenario finished.", zap.String("status", string(res.Status)), zap.Duration("duration", res.Duration))
	}()

	if err := r.limiter.Wait(ctx); err != nil {
		res.Status = StatusSkipped
		return res
	}

	d, err := r.factory.Open(ctx)
	if err != nil {
		r.fail(ctx, res, nil, 0, fmt.Errorf("%w: could not open session: %w", walker.ErrSession, err))
		return res
	}
	defer r.release(d, logger)

	if err := d.Navigate(ctx, res.URL); err != nil {
		r.fail(ctx, res, nil, 0, fmt.Errorf("%w: %w", walker.ErrSession, err))
		return res
	}

	w := walker.New(d, logger, r.walkerOptions(sc)...)
	if sc.Title != "" {
		if err := w.ExpectTitle(ctx, sc.Title); err != nil {
			title := &scenario.Step{
				Kind:   scenario.KindExpectTitle,
				Params: scenario.Params{Title: sc.Title},
				File:   sc.File,
				Line:   sc.Line,
			}
			r.fail(ctx, res, title, 0, err)
			return res
		}
	}

	for i, st := range sc.Steps {
		logger.Debug("Applying step.", zap.Int("step", i+1), zap.String("desc", st.Describe()))
		if err := st.Apply(ctx, w); err != nil {
			r.fail(ctx, res, st, i+1, err)
			return res
		}
		res.StepsRun++
	}
	if !sc.Terminal() {
		logger.Debug("Scenario does not end on a confirmation check.")
	}
	res.Status = StatusPassed
	return res
}

// release closes the session with a context of its own so cleanup still
// happens after the run was canceled.
func (r *Runner) release(d driver.Driver, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.CloseTimeout)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		logger.Warn("Failed to close session.", zap.Error(err))
	}
}

func (r *Runner) fail(ctx context.Context, res *Result, st *scenario.Step, index int, err error) {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		res.Status = StatusSkipped
		return
	}
	res.Status = statusFor(err)
	f := &Failure{StepIndex: index, Class: walker.Classify(err), Message: err.Error(), Err: err}
	if st != nil {
		f.StepKind = string(st.Kind)
		f.Step = st.Describe()
		f.File = st.File
		f.Line = st.Line
	}
	res.Failure = f
	r.logger.Warn("Scenario failed.",
		zap.String("scenario", res.Scenario),
		zap.String("class", f.Class),
		zap.Int("step", index),
		zap.Error(err))
}

func (r *Runner) walkerOptions(sc *scenario.Scenario) []walker.Option {
	opts := []walker.Option{
		walker.WithTimeout(r.wcfg.WaitTimeout),
		walker.WithPollInterval(r.wcfg.PollInterval),
	}
	if r.wcfg.ScreenshotDir != "" {
		dir := filepath.Join(r.wcfg.ScreenshotDir, slug(sc.Name))
		opts = append(opts, walker.WithDiagnostics(walker.ScreenshotHook(dir)))
	}
	return opts
}

// slug turns a scenario name into a directory name.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "scenario"
	}
	return s
}
