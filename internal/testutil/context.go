// Package testutil holds helpers shared by the zone service tests.
package testutil

import (
	"context"
	"testing"
	"time"
)

// Context возвращает context с timeout, отменяемый при завершении теста.
func Context(t testing.TB) context.Context {
	return ContextWithTimeout(t, 5*time.Second)
}

// ContextWithTimeout создаёт context с timeout и автоматически отменяет его при завершении теста.
func ContextWithTimeout(t testing.TB, duration time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t.Cleanup(cancel)

	return ctx
}

// Run starts a blocking Run loop in a goroutine and stops it on cleanup.
// The loop must return once its context is canceled.
func Run(t testing.TB, run func(ctx context.Context) error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("run loop did not stop after cancel")
		}
	})
}
