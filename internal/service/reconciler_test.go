package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (c *countingReconciler) Reconcile(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestRunReconciler(t *testing.T) {
	t.Run("runs until cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		rec := &countingReconciler{err: errors.New("db down")}

		done := make(chan struct{})
		go func() {
			RunReconciler(ctx, rec, 5*time.Millisecond)
			close(done)
		}()

		assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("reconciler did not stop")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		rec := &countingReconciler{}
		RunReconciler(context.Background(), rec, 0)
		assert.Zero(t, rec.calls.Load())
	})
}
