package worker

import (
	"context"
	"sync"
)

// taskGroup counts outstanding background tasks and lets callers wait for
// the count to reach zero. Unlike sync.WaitGroup it tolerates adds racing
// with waits, which concurrent dispatches produce.
type taskGroup struct {
	mu      sync.Mutex
	active  int
	waiters []chan struct{}
}

func (g *taskGroup) add() {
	g.mu.Lock()
	g.active++
	g.mu.Unlock()
}

func (g *taskGroup) done() {
	g.mu.Lock()
	g.active--
	if g.active == 0 {
		for _, ch := range g.waiters {
			close(ch)
		}
		g.waiters = nil
	}
	g.mu.Unlock()
}

func (g *taskGroup) wait(ctx context.Context) error {
	g.mu.Lock()
	if g.active == 0 {
		g.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	g.waiters = append(g.waiters, ch)
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
