package core

import (
	"sync"
	"time"
)

// Scheduler runs delayed tasks that can be canceled by a per-task signal
// (typically a connection's Done channel) or by scheduler shutdown. A task
// whose owner disconnects before the timer fires never runs.
type Scheduler struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	stop    chan struct{}
	stopped bool
}

// NewScheduler constructs a running scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{stop: make(chan struct{})}
}

// After runs fn once delay elapses, unless cancel fires or the scheduler is
// shut down first.
func (s *Scheduler) After(delay time.Duration, cancel <-chan struct{}, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	timer := time.NewTimer(delay)
	go func() {
		defer s.wg.Done()
		defer timer.Stop()

		select {
		case <-timer.C:
			fn()
		case <-cancel:
		case <-s.stop:
		}
	}()
}

// Shutdown cancels pending tasks and waits for in-flight ones to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
