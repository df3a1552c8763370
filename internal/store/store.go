// Package store owns the task collection. It loads the persisted task
// document (flat or phased), keeps tasks in document order, and rewrites the
// full document on every mutation so the file and memory never diverge.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/chibuenyim/Agentic-Toolkit/internal/filelock"
	"github.com/chibuenyim/Agentic-Toolkit/internal/models"
)

// DefaultLockTimeout bounds how long a flush waits on another writer.
const DefaultLockTimeout = 5 * time.Second

// Store is the in-memory task collection backed by a JSON document.
// Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	path        string
	tasks       []models.Task
	index       map[string]int
	now         func() time.Time
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for lastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLockTimeout bounds how long Save waits for the document lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// New creates an empty store for the document at path. Call Load to read it.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		index:       map[string]int{},
		now:         time.Now,
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory tasks with the persisted document.
// A missing document yields an empty store and no error. An unreadable or
// corrupt document also yields an empty store, reported as *LoadError.
// Duplicate ids keep the first occurrence and are reported the same way.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.reset(nil)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return &LoadError{Path: s.path, Err: err}
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.reset(nil)
		return &LoadError{Path: s.path, Err: err}
	}

	tasks := doc.Flatten()
	kept := make([]models.Task, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	var dupes []string
	for _, task := range tasks {
		task.Normalize()
		if seen[task.ID] {
			dupes = append(dupes, task.ID)
			continue
		}
		seen[task.ID] = true
		kept = append(kept, task)
	}
	s.reset(kept)

	if len(dupes) > 0 {
		return &LoadError{Path: s.path, Err: fmt.Errorf("%w: %v", ErrDuplicateID, dupes)}
	}
	return nil
}

func (s *Store) reset(tasks []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	s.reindex()
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.tasks))
	for i := range s.tasks {
		s.index[s.tasks[i].ID] = i
	}
}

// Replace swaps in a new task list and persists it. Ids must be unique.
func (s *Store) Replace(tasks []models.Task) error {
	seen := make(map[string]bool, len(tasks))
	next := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.ID == "" {
			return fmt.Errorf("task %q has an empty id", task.Title)
		}
		if seen[task.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
		}
		seen[task.ID] = true
		task.Normalize()
		next = append(next, task.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.tasks
	s.tasks = next
	s.reindex()
	if err := s.saveLocked(); err != nil {
		s.tasks = prev
		s.reindex()
		return err
	}
	return nil
}

// Save writes the full document.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

// saveLocked must be called with s.mu held.
func (s *Store) saveLocked() error {
	doc := models.NewDocument(s.tasks, s.now().UTC())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	err = filelock.WithLock(s.path, s.lockTimeout, func() error {
		return filelock.AtomicWrite(s.path, data)
	})
	if err != nil {
		return &PersistError{Path: s.path, Err: err}
	}
	return nil
}

// Tasks returns copies of all tasks in document order.
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	for i := range s.tasks {
		out[i] = s.tasks[i].Clone()
	}
	return out
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// UpdateStatus moves a task to status, stamps lastUpdated and persists the
// document. Re-applying the current status still stamps and persists.
// If the flush fails the change is rolled back and a *PersistError returned.
func (s *Store) UpdateStatus(id string, status models.Status) (models.Task, error) {
	return s.setStatus(id, status, true)
}

// ForceStatus is UpdateStatus without the state machine check. It exists
// for operator repairs such as reopening a completed task.
func (s *Store) ForceStatus(id string, status models.Status) (models.Task, error) {
	return s.setStatus(id, status, false)
}

func (s *Store) setStatus(id string, status models.Status, validate bool) (models.Task, error) {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return models.Task{}, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	task := &s.tasks[i]
	if validate && !models.CanTransition(task.Status, status) {
		return task.Clone(), fmt.Errorf("%w: task %s %s -> %s", ErrInvalidTransition, id, task.Status, status)
	}

	prevStatus, prevUpdated := task.Status, task.LastUpdated
	now := s.now().UTC()
	task.Status = status
	task.LastUpdated = &now

	if err := s.saveLocked(); err != nil {
		task.Status, task.LastUpdated = prevStatus, prevUpdated
		return task.Clone(), err
	}
	return task.Clone(), nil
}

// Filter selects tasks for List. Empty fields match everything.
type Filter struct {
	Status   models.Status
	Priority models.Priority
	Phase    string // matches phase id or phase name
}

func (f Filter) matches(t *models.Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Phase != "" && t.PhaseID != f.Phase && t.Phase != f.Phase {
		return false
	}
	return true
}

// List returns copies of the tasks matching f, in document order.
func (s *Store) List(f Filter) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for i := range s.tasks {
		if f.matches(&s.tasks[i]) {
			out = append(out, s.tasks[i].Clone())
		}
	}
	return out
}

// ByStatus is List filtered on status.
func (s *Store) ByStatus(status models.Status) []models.Task {
	return s.List(Filter{Status: status})
}

// ByPriority is List filtered on priority.
func (s *Store) ByPriority(priority models.Priority) []models.Task {
	return s.List(Filter{Priority: priority})
}

// Stats summarizes task progress.
type Stats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"inProgress"`
	Pending        int     `json:"pending"`
	CompletionRate float64 `json:"completionRate"`
}

// Stats counts tasks by status. CompletionRate is a percentage rounded to one decimal.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Total: len(s.tasks)}
	for i := range s.tasks {
		switch s.tasks[i].Status {
		case models.StatusCompleted:
			st.Completed++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusPending:
			st.Pending++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = math.Round(float64(st.Completed)/float64(st.Total)*1000) / 10
	}
	return st
}
