// internal/driver/cdp/context.go
package cdp

import "context"

// combineContext returns a context derived from session that is also
// canceled when op is. Values, and with them the CDP target, come from
// session; op contributes its deadline and its cancellation, so an expired
// op surfaces as context.DeadlineExceeded.
func combineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	var combined context.Context
	var cancel context.CancelFunc
	if deadline, ok := op.Deadline(); ok {
		combined, cancel = context.WithDeadline(session, deadline)
	} else {
		combined, cancel = context.WithCancel(session)
	}

	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
