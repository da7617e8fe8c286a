package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn once after delay. Scheduled work is not cancelable per
// request; steps guard themselves when they fire.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

// TimerScheduler schedules on time.AfterFunc
type TimerScheduler struct {
	mu      sync.Mutex
	stopped bool
	timers  map[*time.Timer]struct{}
	running sync.WaitGroup
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[*time.Timer]struct{})}
}

func (s *TimerScheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, t)
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.running.Add(1)
		s.mu.Unlock()

		defer s.running.Done()
		fn()
	})
	s.timers[t] = struct{}{}
}

// Pending returns the number of timers that have not fired yet
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Shutdown drops timers that have not fired and waits for running steps.
// Requests left mid-flight are picked up by the sweeper.
func (s *TimerScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = map[*time.Timer]struct{}{}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ManualScheduler queues work until Advance is called. Used when steps must
// fire deterministically.
type ManualScheduler struct {
	mu      sync.Mutex
	elapsed time.Duration
	queue   []manualTask
}

type manualTask struct {
	due time.Duration
	fn  func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, manualTask{due: s.elapsed + delay, fn: fn})
}

// Pending returns the number of queued tasks
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Advance moves virtual time forward by d and runs every task that became
// due, including tasks scheduled by those tasks, in due order.
func (s *ManualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.elapsed + d
	s.mu.Unlock()

	ran := 0
	for {
		s.mu.Lock()
		sort.SliceStable(s.queue, func(i, j int) bool { return s.queue[i].due < s.queue[j].due })
		if len(s.queue) == 0 || s.queue[0].due > target {
			s.elapsed = target
			s.mu.Unlock()
			return ran
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.elapsed = next.due
		s.mu.Unlock()

		next.fn()
		ran++
	}
}
