package objectstore

import "fmt"

// NotFoundError indicates the requested key has no object in the store.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("objectstore: key %q not found", e.Key)
}
