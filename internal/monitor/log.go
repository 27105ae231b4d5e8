package monitor

import (
	"fmt"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// LogEntry is one line of the monitor's log view.
type LogEntry struct {
	Time    time.Time
	Message string
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format(timestampLayout), e.Message)
}

// Log is an append-only sequence of entries.
type Log struct {
	mu      sync.Mutex
	now     func() time.Time
	entries []LogEntry
}

func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

func (l *Log) Append(msg string) LogEntry {
	entry := LogEntry{Time: l.now(), Message: msg}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return entry
}

func (l *Log) Appendf(format string, args ...any) LogEntry {
	return l.Append(fmt.Sprintf(format, args...))
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// At returns the entry at index i, or false when out of range.
func (l *Log) At(i int) (LogEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.entries) {
		return LogEntry{}, false
	}
	return l.entries[i], true
}

// Entries returns a copy of every entry in order.
func (l *Log) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
