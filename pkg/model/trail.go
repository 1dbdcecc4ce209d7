package model

import (
	"fmt"
	"slices"
	"sync"
)

// Trail is the ordered, request-scoped diagnostic record of a build. It is
// returned to the caller instead of being written to a shared sink.
type Trail struct {
	mu       sync.Mutex
	messages []string
}

func newTrail() *Trail {
	return &Trail{messages: []string{}}
}

func (t *Trail) add(level, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, level+": "+fmt.Sprintf(format, args...))
}

func (t *Trail) Infof(format string, args ...any) {
	t.add("info", format, args...)
}

func (t *Trail) Warnf(format string, args ...any) {
	t.add("warning", format, args...)
}

func (t *Trail) Messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}
