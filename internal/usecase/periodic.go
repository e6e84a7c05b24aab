package usecase

import (
	"context"
	"sync"
	"time"

	"FinAlert/pkg/logger"
)

// periodic runs a cycle immediately on start and then on every tick until stopped.
// Stopping only prevents future cycles; a cycle that already started runs to completion
// on a context that is detached from the caller's cancellation.
type periodic struct {
	name     string
	interval time.Duration
	cycle    func(ctx context.Context)
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	gen     uint64
	cancel  context.CancelFunc
	nextRun *time.Time
	wg      sync.WaitGroup
}

func newPeriodic(name string, interval time.Duration, cycle func(ctx context.Context), l *logger.Logger) *periodic {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &periodic{name: name, interval: interval, cycle: cycle, log: l, now: time.Now}
}

// start reports false when the loop was already running.
func (p *periodic) start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.log.Info("scheduler already running", logger.String("scheduler", p.name))
		return false
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.gen++
	next := p.now().Add(p.interval)
	p.nextRun = &next

	p.wg.Add(1)
	go p.loop(loopCtx, context.WithoutCancel(ctx), p.gen)

	p.log.Info("scheduler started",
		logger.String("scheduler", p.name),
		logger.Duration("interval", p.interval))
	return true
}

// stop reports false when the loop was not running.
func (p *periodic) stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return false
	}
	p.cancel()
	p.cancel = nil
	p.running = false
	p.nextRun = nil

	p.log.Info("scheduler stopped", logger.String("scheduler", p.name))
	return true
}

// restart always ends with the loop running. The delay ignores ctx cancellation so an
// abandoned caller cannot leave the loop stopped.
func (p *periodic) restart(ctx context.Context, delay time.Duration) {
	p.stop()
	_ = sleepCtx(context.WithoutCancel(ctx), delay)
	p.start(ctx)
}

func (p *periodic) loop(loopCtx, workCtx context.Context, gen uint64) {
	defer p.wg.Done()

	p.cycle(workCtx)

	// the next run is one interval after the first cycle returns
	if !p.scheduleNext(gen) {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			if loopCtx.Err() != nil || !p.scheduleNext(gen) {
				return
			}
			p.cycle(workCtx)
		}
	}
}

// scheduleNext records the next tick for loop gen. It reports false once that loop has
// been stopped or replaced, leaving nextRun to the current owner.
func (p *periodic) scheduleNext(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running || p.gen != gen {
		return false
	}
	next := p.now().Add(p.interval)
	p.nextRun = &next
	return true
}

func (p *periodic) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *periodic) nextRunAt() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nextRun == nil {
		return nil
	}
	t := *p.nextRun
	return &t
}

// wait blocks until every loop goroutine has returned or ctx is done.
func (p *periodic) wait(ctx context.Context) error {
	return waitGroupCtx(ctx, &p.wg)
}

func waitGroupCtx(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
