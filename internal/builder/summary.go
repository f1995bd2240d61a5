package builder

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mode selects whether a run writes output or only reports what it would do.
type Mode string

const (
	// ModeReport classifies every item without touching the output tree.
	ModeReport Mode = "report"
	// ModeWrite renders and writes every item.
	ModeWrite Mode = "write"
)

// Summary is the result of one run: the ordered items plus run metadata.
// It is reset at the start of each run and grows monotonically during it.
type Summary struct {
	RunID    string        `json:"run_id"`
	Mode     Mode          `json:"mode"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Items    []Item        `json:"items"`

	mu          sync.Mutex
	maxModified time.Time
}

func newSummary(mode Mode) *Summary {
	return &Summary{
		RunID:   uuid.NewString(),
		Mode:    mode,
		Started: time.Now(),
	}
}

// observeModified raises the running maximum content modification time.
// Items without a single backing file, like routes and redirect maps, are
// judged against this maximum, so evaluation order matters: pages first,
// then routes, then redirect maps, then assets.
func (s *Summary) observeModified(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.maxModified) {
		s.maxModified = t
	}
}

// MaxModified returns the latest content modification time observed so far
// in this run.
func (s *Summary) MaxModified() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxModified
}

// Counts tallies items by final status.
func (s *Summary) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, it := range s.Items {
		counts[it.Status]++
	}
	return counts
}

// HasStatus reports whether any item ended in the given status.
func (s *Summary) HasStatus(status Status) bool {
	for _, it := range s.Items {
		if it.Status == status {
			return true
		}
	}
	return false
}
