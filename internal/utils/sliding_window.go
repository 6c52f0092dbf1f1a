package utils

import (
	"sync"
	"time"
)

type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// Add records a hit at now and returns the hits still inside the window.
func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.expire(now)
	return len(w.hits)
}

func (w *SlidingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hits = nil
}

func (w *SlidingWindow) expire(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

// WindowSet keeps one sliding window per key.
type WindowSet struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string]*SlidingWindow
}

func NewWindowSet(window time.Duration) *WindowSet {
	return &WindowSet{window: window, windows: make(map[string]*SlidingWindow)}
}

func (s *WindowSet) Add(key string, now time.Time) int {
	return s.get(key).Add(now)
}

func (s *WindowSet) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
}

// Prune drops windows with no hits left at now.
func (s *WindowSet) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, window := range s.windows {
		if window.Count(now) == 0 {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

func (s *WindowSet) get(key string) *SlidingWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := s.windows[key]
	if window == nil {
		window = NewSlidingWindow(s.window)
		s.windows[key] = window
	}
	return window
}
