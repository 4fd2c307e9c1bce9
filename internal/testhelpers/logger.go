package testhelpers

import (
	"fmt"
	"strings"
	"sync"
)

// LogRecorder collects log lines from components under test. Unlike t.Logf
// it is safe to call after the test has finished.
type LogRecorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf matches the log.Printf signature components accept.
func (r *LogRecorder) Logf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

// Contains reports whether any recorded line contains substr.
func (r *LogRecorder) Contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range r.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// Lines returns a copy of everything recorded so far.
func (r *LogRecorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}
