package recordstore

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is wrapped by errors for records that do not exist.
var ErrNotFound = errors.New("record not found")

// TransportError reports a store call that could not complete: the store
// was unreachable or answered with a non-success status. Status is zero
// when no response was received.
type TransportError struct {
	Op     string // query, create, update, archive, get
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("recordstore: %s failed: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("recordstore: %s failed: %d %s: %v", e.Op, e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("recordstore: %s failed: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

func (e *TransportError) Unwrap() []error {
	var errs []error
	if e.Status == http.StatusNotFound {
		errs = append(errs, ErrNotFound)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// StatusOf returns the HTTP status carried by err, or 0 if it has none.
func StatusOf(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}
