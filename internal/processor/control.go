package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSkipped marks a job abandoned through Controller.Skip. It is not a
// failure kind: such outcomes carry StatusSkipped.
var ErrSkipped = errors.New("skipped by user")

// Controller pauses, resumes and skips jobs of a running batch. The zero
// value is ready to use. Run treats a nil *Controller as one that never
// pauses or skips.
//
// Pause holds back jobs that have not started yet; a job already encoding
// runs on. Skip abandons the current job at its next encode attempt, or the
// next job to start when none is encoding. Nothing is written for a skipped
// job.
type Controller struct {
	mu     sync.Mutex
	paused bool
	resume chan struct{}
	skip   atomic.Bool
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.resume = make(chan struct{})
}

func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resume)
}

// Toggle flips between paused and running and reports the new state.
func (c *Controller) Toggle() bool {
	if c.Paused() {
		c.Resume()
		return false
	}
	c.Pause()
	return true
}

func (c *Controller) Paused() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Skip requests that the current job be abandoned.
func (c *Controller) Skip() {
	c.skip.Store(true)
}

// wait blocks while the controller is paused. It returns ctx.Err() when ctx
// ends first.
func (c *Controller) wait(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	for {
		c.mu.Lock()
		if !c.paused {
			c.mu.Unlock()
			return ctx.Err()
		}
		resume := c.resume
		c.mu.Unlock()

		select {
		case <-resume:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// takeSkip consumes a pending skip request.
func (c *Controller) takeSkip() bool {
	if c == nil {
		return false
	}
	return c.skip.CompareAndSwap(true, false)
}
