package usecase

import (
	"fmt"
	"sync"
)

// recorder accumulates one stage's counts and issues. Workers share it.
type recorder struct {
	mu       sync.Mutex
	counts   map[string]int
	errors   []string
	warnings []string
}

func newRecorder() *recorder {
	return &recorder{counts: map[string]int{}}
}

func (r *recorder) add(key string, n int) {
	r.mu.Lock()
	r.counts[key] += n
	r.mu.Unlock()
}

func (r *recorder) fail(err error) {
	r.mu.Lock()
	r.errors = append(r.errors, err.Error())
	r.mu.Unlock()
}

func (r *recorder) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	r.warnings = append(r.warnings, msg)
	r.mu.Unlock()
}

func (r *recorder) failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors) > 0
}

// capIssues keeps at most max entries and notes how many were dropped.
func capIssues(issues []string, max int) []string {
	if len(issues) <= max {
		return append([]string{}, issues...)
	}
	out := append([]string{}, issues[:max]...)
	return append(out, fmt.Sprintf("... and %d more", len(issues)-max))
}
