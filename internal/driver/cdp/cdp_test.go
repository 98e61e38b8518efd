// internal/driver/cdp/cdp_test.go
package cdp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestSplitFlag(t *testing.T) {
	tests := []struct {
		arg  string
		name string
		val  interface{}
	}{
		{"--no-sandbox", "no-sandbox", true},
		{"--lang=en-US", "lang", "en-US"},
		{"disable-gpu", "disable-gpu", true},
		{"--window-size=1,2", "window-size", "1,2"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, val := splitFlag(tt.arg)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.val, val)
		})
	}
}

func TestCombineContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("op cancellation propagates", func(t *testing.T) {
		session := context.WithValue(context.Background(), ctxKey{}, "target")
		op, cancelOp := context.WithCancel(context.Background())

		combined, cancel := combineContext(session, op)
		defer cancel()
		assert.Equal(t, "target", combined.Value(ctxKey{}))

		cancelOp()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not canceled")
		}
	})

	t.Run("op deadline propagates", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelOp()
		want, _ := op.Deadline()

		combined, cancel := combineContext(context.Background(), op)
		defer cancel()
		got, ok := combined.Deadline()
		assert.True(t, ok)
		assert.Equal(t, want, got)

		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.DeadlineExceeded)
	})

	t.Run("session cancellation propagates", func(t *testing.T) {
		session, cancelSession := context.WithCancel(context.Background())
		combined, cancel := combineContext(session, context.Background())
		defer cancel()

		cancelSession()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

type ctxKey struct{}
