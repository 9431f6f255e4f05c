package library

import "errors"

// Persistence failures.
var (
	ErrIO     = errors.New("i/o error")
	ErrFormat = errors.New("malformed library data")
)

// Domain outcomes. Callers tell them apart with errors.Is.
var (
	ErrUnknownUser       = errors.New("no such user")
	ErrDuplicateUser     = errors.New("user already exists")
	ErrBookUnavailable   = errors.New("no available book")
	ErrBookNotIssued     = errors.New("no issued book")
	ErrNotBorrowedByUser = errors.New("book not borrowed by user")
	ErrNoBooks           = errors.New("no books available")
	ErrInconsistent      = errors.New("inconsistent catalog")
)
