package engine

import (
	"context"
	"errors"
	"sync"
)

type task func(ctx context.Context)

// workerPool runs page fetches for one deep crawl with bounded concurrency.
// The bounded queue keeps a slow level from piling up unbounded work.
type workerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan task
	wg     sync.WaitGroup
}

func newWorkerPool(parent context.Context, workers, queueSize int) (*workerPool, error) {
	if workers <= 0 || queueSize <= 0 {
		return nil, errors.New("worker pool needs positive worker count and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	p := &workerPool{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan task, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p, nil
}

func (p *workerPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case fn, ok := <-p.tasks:
			if !ok {
				return
			}
			fn(p.ctx)
		}
	}
}

// submit schedules a task, failing if either context ends first.
func (p *workerPool) submit(ctx context.Context, fn task) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- fn:
		return nil
	}
}

func (p *workerPool) close() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
}
