// Package execlog persists the bounded, append-only execution log. The log
// is a JSON array of entries; once it holds more than its capacity the
// oldest entries are dropped.
package execlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chibuenyim/Agentic-Toolkit/internal/filelock"
)

// DefaultCap is the number of entries kept when no capacity is configured.
const DefaultCap = 1000

// EntryType classifies a log entry.
type EntryType string

const (
	TypeStart    EntryType = "start"
	TypeComplete EntryType = "complete"
	TypeFail     EntryType = "fail"
	TypeError    EntryType = "error"
)

// ParseType validates a user-supplied entry type.
func ParseType(s string) (EntryType, error) {
	switch EntryType(s) {
	case TypeStart, TypeComplete, TypeFail, TypeError:
		return EntryType(s), nil
	}
	return "", fmt.Errorf("invalid log entry type %q (want start, complete, fail or error)", s)
}

// Metadata carries the structured part of an entry.
type Metadata struct {
	TaskID    string `json:"taskId,omitempty"`
	RunID     string `json:"runId,omitempty"`
	Iteration int    `json:"iteration,omitempty"`
	// Duration is in milliseconds.
	Duration int64  `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Result   string `json:"result,omitempty"`
}

// Entry is one audit record. Entries are never modified after Append.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EntryType `json:"type"`
	Message   string    `json:"message"`
	Metadata  Metadata  `json:"metadata"`
}

// DurationValue returns Metadata.Duration as a time.Duration.
func (e Entry) DurationValue() time.Duration {
	return time.Duration(e.Metadata.Duration) * time.Millisecond
}

// Log is the execution log file. Appends are serialized within the process
// by a mutex and across processes by a lock file beside the log.
type Log struct {
	mu          sync.Mutex
	path        string
	cap         int
	now         func() time.Time
	lockTimeout time.Duration
}

// Option configures a Log.
type Option func(*Log)

// WithCap sets the maximum number of entries kept. Values below 1 mean DefaultCap.
func WithCap(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.cap = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New returns a Log for path. The file is created on first Append.
func New(path string, opts ...Option) *Log {
	l := &Log{
		path:        path,
		cap:         DefaultCap,
		now:         time.Now,
		lockTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Cap returns the capacity.
func (l *Log) Cap() int {
	return l.cap
}

// Append stamps e with an id and timestamp when they are unset, writes it
// and evicts the oldest entries beyond capacity. The stamped entry is returned.
func (l *Log) Append(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := filelock.WithLock(l.path, l.lockTimeout, func() error {
		entries, err := l.read()
		if err != nil {
			return err
		}
		entries = append(entries, e)
		if over := len(entries) - l.cap; over > 0 {
			entries = entries[over:]
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("encode execution log: %w", err)
		}
		return filelock.AtomicWrite(l.path, data)
	})
	if err != nil {
		return e, fmt.Errorf("append execution log %s: %w", l.path, err)
	}
	return e, nil
}

// Read returns every entry, oldest first. A missing file is an empty log.
func (l *Log) Read() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *Log) read() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read execution log: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse execution log: %w", err)
	}
	return entries, nil
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	Type   EntryType
	TaskID string
	Since  time.Time
	// Limit keeps only the newest Limit matches.
	Limit int
}

func (f Filter) matches(e *Entry) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.TaskID != "" && e.Metadata.TaskID != f.TaskID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Select applies f to entries, preserving order.
func Select(entries []Entry, f Filter) []Entry {
	var out []Entry
	for i := range entries {
		if f.matches(&entries[i]) {
			out = append(out, entries[i])
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// Entries reads the log and applies f.
func (l *Log) Entries(f Filter) ([]Entry, error) {
	entries, err := l.Read()
	if err != nil {
		return nil, err
	}
	return Select(entries, f), nil
}
