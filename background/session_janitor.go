// Package background contains work that runs outside the request-response
// cycle. The session janitor periodically strips expired sessions from the
// users document so it does not grow without bound for users who never log in
// again.
package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pruner removes expired sessions and reports how many it dropped.
// *auth.Service satisfies it.
type Pruner interface {
	PruneExpired(ctx context.Context) (int, error)
}

// SessionJanitor runs a Pruner on a ticker until stopped.
type SessionJanitor struct {
	pruner   Pruner
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSessionJanitor creates a janitor that prunes every interval. Each pass is
// bounded by timeout; a non-positive timeout means one interval.
func NewSessionJanitor(pruner Pruner, interval, timeout time.Duration, logger *slog.Logger) *SessionJanitor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &SessionJanitor{
		pruner:   pruner,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "session_janitor"),
		stopChan: make(chan struct{}),
	}
}

// Start launches the janitor goroutine. A non-positive interval disables it.
func (j *SessionJanitor) Start() {
	if j.interval <= 0 {
		j.logger.Info("session janitor disabled")
		return
	}
	j.wg.Add(1)
	go j.loop()
	j.logger.Info("session janitor started", "interval", j.interval)
}

// Stop signals the goroutine and waits for an in-flight pass to finish.
// It is safe to call more than once, and before Start.
func (j *SessionJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	j.wg.Wait()
}

func (j *SessionJanitor) loop() {
	defer j.wg.Done()
	defer j.logger.Info("session janitor stopped")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs a single prune pass.
func (j *SessionJanitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	removed, err := j.pruner.PruneExpired(ctx)
	if err != nil {
		j.logger.Error("session prune failed", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Info("expired sessions pruned", "removed", removed, "took", time.Since(start))
	} else {
		j.logger.Debug("no expired sessions")
	}
}
