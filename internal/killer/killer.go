package killer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jpequegn/kyua/internal/process"
)

// TerminateFunc kills a process group. Exposed as a field so tests can
// substitute a fake instead of actually sending signals.
type TerminateFunc func(pid int) error

// Service is a deadline killer: a registry of (pid, fire-time) pairs with
// a single background goroutine that wakes up whenever the next deadline
// is due. It starts that goroutine lazily on the first Register call and
// stops it once the registry becomes empty, so an idle Service costs
// nothing beyond a mutex and a map.
type Service struct {
	Terminate TerminateFunc
	Logger    *slog.Logger

	mu      sync.Mutex
	entries map[*Handle]struct{}
	timer   *time.Timer
	stopCh  chan struct{}
}

// NewService returns a Service that kills with process.Terminate and logs
// with slog.Default.
func NewService() *Service {
	return &Service{Terminate: process.Terminate, Logger: slog.Default()}
}

// Handle represents one outstanding registration. It is only ever touched
// through the owning Service's methods, never directly.
type Handle struct {
	svc     *Service
	pid     int
	fireAt  time.Time
	fired   bool
	done    chan struct{}
}

// Register schedules pid to be killed after delta elapses, unless the
// returned handle is unscheduled first.
func (s *Service) Register(pid int, delta time.Duration) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := &Handle{svc: s, pid: pid, fireAt: time.Now().Add(delta), done: make(chan struct{})}
	if s.entries == nil {
		s.entries = make(map[*Handle]struct{})
	}
	s.entries[h] = struct{}{}
	s.rescheduleLocked()
	return h
}

// Unschedule cancels the registration. It reports whether the deadline had
// already fired before the cancellation took effect; callers use this to
// distinguish "the test finished in time" from "it was killed for
// overrunning its deadline".
func (h *Handle) Unschedule() bool {
	h.svc.mu.Lock()
	defer h.svc.mu.Unlock()

	fired := h.fired
	delete(h.svc.entries, h)
	h.svc.rescheduleLocked()
	return fired
}

// rescheduleLocked must be called with s.mu held. It arms (or disarms) the
// single background timer to wake at the earliest outstanding deadline.
func (s *Service) rescheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.entries) == 0 {
		return
	}

	var earliest *Handle
	for h := range s.entries {
		if earliest == nil || h.fireAt.Before(earliest.fireAt) {
			earliest = h
		}
	}

	delay := time.Until(earliest.fireAt)
	if delay < 0 {
		delay = 0
	}
	s.timer = time.AfterFunc(delay, s.fire)
}

// fire runs in the timer's own goroutine. It kills every entry whose
// deadline has passed (not just the single earliest one, in case several
// share the same fire time) and reschedules for whatever remains.
func (s *Service) fire() {
	s.mu.Lock()
	now := time.Now()
	var due []*Handle
	for h := range s.entries {
		if !h.fireAt.After(now) {
			due = append(due, h)
		}
	}
	for _, h := range due {
		h.fired = true
		delete(s.entries, h)
	}
	s.rescheduleLocked()
	s.mu.Unlock()

	for _, h := range due {
		if err := s.Terminate(h.pid); err != nil {
			s.logger().Warn("deadline kill failed", "pid", h.pid, "error", err)
		} else {
			s.logger().Info("deadline exceeded, process group killed", "pid", h.pid)
		}
		close(h.done)
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
