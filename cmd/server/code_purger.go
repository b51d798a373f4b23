package main

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// codePurger drops spent confirmation codes whose window already closed.
// Only the in-memory store needs this; Redis keys expire server-side.
type codePurger interface {
	PurgeExpired() int
}

type purgeTicker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

type tickerFactory func(time.Duration) purgeTicker

func startCodePurgeWorker(ctx context.Context, logger *slog.Logger, codes codePurger, interval time.Duration) func() {
	return startCodePurgeWorkerWithTicker(ctx, logger, codes, interval, func(d time.Duration) purgeTicker {
		return timeTicker{ticker: time.NewTicker(d)}
	})
}

func startCodePurgeWorkerWithTicker(
	ctx context.Context,
	logger *slog.Logger,
	codes codePurger,
	interval time.Duration,
	newTicker tickerFactory,
) func() {
	if codes == nil || interval <= 0 {
		return func() {}
	}
	workerCtx, cancel := context.WithCancel(ctx)
	ticker := newTicker(interval)
	done := make(chan struct{})
	go func() {
		defer func() {
			ticker.Stop()
			close(done)
		}()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C():
				if purged := codes.PurgeExpired(); purged > 0 && logger != nil {
					logger.Debug("purged expired confirmation codes", "count", purged)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
