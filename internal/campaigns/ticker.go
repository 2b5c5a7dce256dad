package campaigns

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/logger"
)

// Runner is what the Ticker triggers; *Scanner satisfies it.
type Runner interface {
	Run(ctx context.Context) (RunSummary, error)
}

// Ticker runs the scanner on a fixed interval inside the API process.
// Each tick runs to completion before the next one is considered.
type Ticker struct {
	runner   Runner
	interval time.Duration
	log      *slog.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func NewTicker(runner Runner, interval time.Duration, log *slog.Logger) *Ticker {
	if log == nil {
		log = slog.Default()
	}
	return &Ticker{runner: runner, interval: interval, log: log}
}

// Start launches the loop. It is a no-op when already running or when the
// interval is not positive.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning || t.interval <= 0 {
		return
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.log.Info("campaign ticker started", "interval", t.interval.String())
}

// Stop cancels the loop and waits for an in-flight run to return.
func (t *Ticker) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.log.Info("campaign ticker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Ticker) runLoop(ctx context.Context) {
	defer t.wg.Done()

	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			t.tick(ctx)
		}
	}
}

func (t *Ticker) tick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			t.log.Error("campaign scan panicked", "panic", p)
		}
	}()

	_, err := t.runner.Run(logger.With(ctx, t.log))
	switch {
	case err == nil || ctx.Err() != nil:
	case errors.Is(err, telephony.ErrNotConfigured):
		t.log.Error("campaign scan refused", "err", err)
	default:
		t.log.Error("campaign scan failed", "err", err)
	}
}
