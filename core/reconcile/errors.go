package reconcile

import "fmt"

// FetchError reports that a snapshot could not be obtained from a source.
// It is fatal for the entity type and drives a non-zero process exit.
type FetchError struct {
	EntityType EntityType
	Source     Source
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s snapshot from %s: %v", e.EntityType, e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AmbiguousKeyError reports records colliding on an identity key, or a record without one.
type AmbiguousKeyError struct {
	EntityType EntityType
	Source     Source
	Key        string
	Count      int
}

func (e *AmbiguousKeyError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s record from %s has an empty identity key", e.EntityType, e.Source)
	}
	return fmt.Sprintf("%d %s records from %s share identity key %q", e.Count, e.EntityType, e.Source, e.Key)
}

// Unwrap returns nil; the error has no cause.
func (e *AmbiguousKeyError) Unwrap() error { return nil }

// PersistenceError reports a failed mapping store operation.
type PersistenceError struct {
	EntityType EntityType
	Op         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.EntityType, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
