// ABOUTME: Typed errors shared by the structured and document stores.
// ABOUTME: Lets callers tell connectivity failures from schema failures with errors.As.
package storeerr

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by lookups of a single row that does not exist.
var ErrNotFound = errors.New("not found")

// ConnectError reports that a store was unreachable or rejected credentials.
type ConnectError struct {
	Store string
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Store, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SchemaError reports that a table, collection or index could not be created.
type SchemaError struct {
	Store  string
	Object string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s schema %s: %v", e.Store, e.Object, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Connect wraps err as a ConnectError for store. A nil err stays nil.
func Connect(store string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectError{Store: store, Err: err}
}

// IsConnect reports whether err is (or wraps) a ConnectError, returning the store name.
func IsConnect(err error) (string, bool) {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce.Store, true
	}
	return "", false
}
