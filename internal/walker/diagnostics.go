// internal/walker/diagnostics.go
package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xkilldash9x/formwalk/internal/driver"
	"github.com/xkilldash9x/formwalk/internal/locator"
)

// Attempt describes one locate attempt.
type Attempt struct {
	Query locator.Query
	// Number counts attempts of the same locate, starting at 1.
	Number int
	Found  bool
}

// Hook is invoked after every locate attempt, whatever its outcome. Its error is
// logged and never changes the step result.
type Hook func(ctx context.Context, d driver.Driver, a Attempt) error

// NopHook does nothing.
func NopHook(context.Context, driver.Driver, Attempt) error { return nil }

// ScreenshotHook overwrites <dir>/screen<ext> with the latest capture, so
// the file always shows the view at the last attempt.
func ScreenshotHook(dir string) Hook {
	return func(ctx context.Context, d driver.Driver, _ Attempt) error {
		snap, err := d.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "screen"+snap.Ext), snap.Data, 0o644)
	}
}
