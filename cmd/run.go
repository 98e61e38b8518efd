// cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/config"
	"github.com/xkilldash9x/formwalk/internal/driver"
	"github.com/xkilldash9x/formwalk/internal/driver/cdp"
	"github.com/xkilldash9x/formwalk/internal/driver/htmldoc"
	"github.com/xkilldash9x/formwalk/internal/driver/webdriver"
	"github.com/xkilldash9x/formwalk/internal/observability"
	"github.com/xkilldash9x/formwalk/internal/reporting"
	"github.com/xkilldash9x/formwalk/internal/runner"
	"github.com/xkilldash9x/formwalk/internal/scenario"
)

// ErrScenariosFailed is returned by run when at least one scenario did not
// pass. main turns it into a non-zero exit status.
var ErrScenariosFailed = errors.New("scenarios failed")

// runFlags maps each flag of the run command onto its config key.
var runFlags = map[string]string{
	"driver":      "browser.driver",
	"remote-url":  "browser.remote_url",
	"headless":    "browser.headless",
	"fixtures":    "browser.fixture_dir",
	"timeout":     "walker.wait_timeout",
	"screenshots": "walker.screenshot_dir",
	"concurrency": "runner.concurrency",
	"fail-fast":   "runner.fail_fast",
	"base-url":    "runner.base_url",
	"format":      "report.format",
	"output":      "report.output",
}

func newRunCmd(a *app) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run the scenarios of one or more suite files or directories",
		Long: `Run walks every scenario of the given suite files. Directories are
searched recursively for *.yaml and *.yml files. Each scenario gets its own
browser session.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}

	flags := runCmd.Flags()
	flags.String("driver", "", "browser backend: cdp, webdriver or htmldoc")
	flags.String("remote-url", "", "DevTools endpoint (cdp) or WebDriver hub URL (webdriver)")
	flags.Bool("headless", true, "run a local browser without a window")
	flags.String("fixtures", "", "root directory of static pages for the htmldoc driver")
	flags.Duration("timeout", 0, "wait budget of every step, e.g. 30s")
	flags.String("screenshots", "", "directory for the last screenshot of each scenario")
	flags.IntP("concurrency", "j", 0, "number of scenarios run at once")
	flags.Bool("fail-fast", false, "stop after the first scenario that does not pass")
	flags.String("base-url", "", "override the base_url of every suite")
	flags.StringP("format", "f", "", "report format: text, json, junit or sarif")
	flags.StringP("output", "o", "", "report file (default stdout)")

	bindFlags(a.v, runCmd)
	return runCmd
}

// bindFlags binds every run flag to its config key. Unset flags leave the
// config file, env and default values in place.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range runFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := a.cfg
	logger := observability.GetLogger()

	suites, err := scenario.LoadPaths(args...)
	if err != nil {
		return err
	}

	factory, closeFactory, err := newFactory(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer closeFactory()

	rep, err := newReporter(cmd, cfg.Report)
	if err != nil {
		return err
	}

	// The result handler is serialized by the runner.
	var writeErr error
	r := runner.New(factory, cfg.Runner, cfg.Walker, logger, runner.WithResultHandler(func(res *runner.Result) {
		if err := rep.Write(res); err != nil && writeErr == nil {
			writeErr = err
		}
	}))

	summary, runErr := r.Run(ctx, suites...)
	closeErr := rep.Close()

	switch {
	case runErr != nil:
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Run aborted by signal.")
			return fmt.Errorf("run aborted: %w", runErr)
		}
		return runErr
	case writeErr != nil:
		return fmt.Errorf("failed to write report: %w", writeErr)
	case closeErr != nil:
		return fmt.Errorf("failed to write report: %w", closeErr)
	}

	if !summary.OK() {
		return fmt.Errorf("%w: %d failed, %d errored, %d skipped of %d",
			ErrScenariosFailed, summary.Failed, summary.Errored, summary.Skipped, len(summary.Results))
	}
	return nil
}

// newFactory builds the session factory for the configured driver. The
// returned func releases anything the factory holds beyond its sessions.
func newFactory(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (driver.Factory, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverCDP:
		f := cdp.NewFactory(ctx, cfg, logger)
		return f, f.Close, nil
	case config.DriverWebDriver:
		return webdriver.NewFactory(cfg, logger), func() {}, nil
	case config.DriverHTMLDoc:
		return htmldoc.NewFactory(htmldoc.DirLoader(cfg.FixtureDir), logger), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}

// newReporter writes to the command's stdout unless an output file is set.
func newReporter(cmd *cobra.Command, cfg config.ReportConfig) (reporting.Reporter, error) {
	if cfg.Output == "" || cfg.Output == "stdout" {
		return reporting.NewWithWriter(cfg.Format, reporting.NopWriteCloser(cmd.OutOrStdout()), Version)
	}
	return reporting.New(cfg.Format, cfg.Output, Version)
}
