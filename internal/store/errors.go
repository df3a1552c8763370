package store

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound indicates an update or lookup referenced an unknown task id.
	ErrTaskNotFound = errors.New("store: task not found")
	// ErrInvalidTransition indicates a status change the task state machine forbids.
	ErrInvalidTransition = errors.New("store: invalid status transition")
	// ErrInvalidStatus indicates a status value outside pending, in_progress, completed.
	ErrInvalidStatus = errors.New("store: invalid status")
	// ErrDuplicateID indicates two tasks share an id.
	ErrDuplicateID = errors.New("store: duplicate task id")
)

// LoadError reports a task document that exists but could not be read or
// parsed, in which case the store is left empty. Duplicate ids are reported
// the same way with the first occurrence of each id kept.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load task document %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PersistError reports a failed flush of the task document. The in-memory
// mutation that triggered the flush has been rolled back.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist task document %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
