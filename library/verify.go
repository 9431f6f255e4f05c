package library

import (
	"errors"
	"fmt"
)

// Verify checks the loan bookkeeping: ids and user names are unique, every
// borrowed id names an issued book, and every issued book has exactly one
// holder. All violations are reported, each wrapping ErrInconsistent.
func (c *Catalog) Verify() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	books := make(map[uint32]Book, len(c.books))
	for _, b := range c.books {
		if _, dup := books[b.ID]; dup {
			fail("duplicate book id %d", b.ID)
			continue
		}
		books[b.ID] = b
	}

	userIDs := make(map[uint32]bool, len(c.users))
	names := make(map[string]bool, len(c.users))
	holders := make(map[uint32]int)
	for _, u := range c.users {
		if userIDs[u.ID] {
			fail("duplicate user id %d", u.ID)
		}
		userIDs[u.ID] = true
		if names[u.Name] {
			fail("duplicate user name %q", u.Name)
		}
		names[u.Name] = true

		for _, id := range u.BorrowedBooks {
			b, ok := books[id]
			switch {
			case !ok:
				fail("user %q holds unknown book %d", u.Name, id)
			case !b.IsIssued:
				fail("user %q holds book %d which is not issued", u.Name, id)
			}
			holders[id]++
		}
	}

	for _, b := range c.books {
		n := holders[b.ID]
		switch {
		case b.IsIssued && n == 0:
			fail("book %d is issued but no user holds it", b.ID)
		case n > 1:
			fail("book %d is held %d times", b.ID, n)
		}
	}
	return errors.Join(errs...)
}
