// Package worker runs mood analyses in the background on a fixed set of
// goroutines fed by a bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
	"github.com/ewilliams-labs/vibecheck/internal/core/ports"
)

// ErrQueueFull is returned by Submit when every slot is taken. It wraps
// domain.ErrRateLimited.
var ErrQueueFull = fmt.Errorf("worker: analysis queue full: %w", domain.ErrRateLimited)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker: pool stopped")

var _ ports.AnalysisQueue = (*Pool)(nil)

// Pool manages background analysis workers.
type Pool struct {
	analyzer ports.MoodAnalyzer
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	stopped bool
	jobs    chan ports.AnalysisRequest
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given queue size. A timeout of zero leaves
// deadlines to the request context.
func NewPool(analyzer ports.MoodAnalyzer, queueSize int, timeout time.Duration, logger *zap.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		analyzer: analyzer,
		timeout:  timeout,
		logger:   logger,
		jobs:     make(chan ports.AnalysisRequest, queueSize),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for req := range p.jobs {
				p.process(req)
			}
		}()
	}
}

// Stop closes the queue and waits for queued analyses to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a request without blocking.
func (p *Pool) Submit(req ports.AnalysisRequest) error {
	if req.Done == nil {
		return errors.New("worker: request has no completion callback")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- req:
		return nil
	default:
		p.logger.Warn("dropping analysis", zap.String("session", req.SessionID), zap.Uint64("generation", req.Generation))
		return ErrQueueFull
	}
}

func (p *Pool) process(req ports.AnalysisRequest) {
	ctx := req.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		req.Done(domain.AnalysisResult{}, err)
		return
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := p.analyzer.Analyze(ctx, req.Image)
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrNetwork) {
		err = fmt.Errorf("worker: analysis timed out: %v: %w", err, domain.ErrNetwork)
	}

	fields := []zap.Field{
		zap.String("session", req.SessionID),
		zap.Uint64("generation", req.Generation),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		p.logger.Info("analysis failed", append(fields, zap.Error(err))...)
	} else {
		p.logger.Info("analysis finished", append(fields, zap.Int("songs", len(result.Playlist)))...)
	}
	req.Done(result, err)
}
