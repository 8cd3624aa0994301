package employee

import "errors"

var (
	ErrNotFound      = errors.New("employee: not found")
	ErrAlreadyExists = errors.New("employee: already exists")
	ErrInvalidInput  = errors.New("employee: invalid input")
	// ErrInUse blocks deleting a unit or position still referenced by an
	// employee.
	ErrInUse = errors.New("employee: record in use")
)
