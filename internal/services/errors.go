package services

import "fmt"

// PersistenceError reports a storage failure behind a lifecycle operation.
// The message shown to people stays generic; Err keeps the cause for logs.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s comment: storage failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
