package container

import "errors"

var (
	ErrInvalidAbsolutePath = errors.New("absolute path required")
	ErrInvalidFileName     = errors.New("file name required, path denotes a directory")

	ErrNotFound      = errors.New("file not found")
	ErrAlreadyExists = errors.New("file already exists")

	// ErrDatabaseFailed means a statement that had to change exactly one row changed none.
	// The row existed moments before, so this is a race with the store, not an absence.
	ErrDatabaseFailed = errors.New("database failed")

	ErrArgumentInvalid = errors.New("invalid argument")
)
