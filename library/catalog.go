package library

import (
	"fmt"
	"slices"
)

// Catalog owns every book and user. It is not safe for concurrent use;
// a multi-client caller must hold one lock across each operation because
// issue and return touch a book and a user together.
type Catalog struct {
	books []Book
	users []User
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{books: []Book{}, users: []User{}}
}

// ------------------ Books ------------------

// AddBook appends a book on the shelf. Ids are the book count plus one.
// Blank titles and authors are accepted; the shell rejects them earlier.
func (c *Catalog) AddBook(title, author string) Book {
	b := Book{
		ID:     uint32(len(c.books)) + 1,
		Title:  title,
		Author: author,
	}
	c.books = append(c.books, b)
	return b
}

// ListBooks returns every book in collection order with its status label.
func (c *Catalog) ListBooks() ([]Listing, error) {
	if len(c.books) == 0 {
		return nil, ErrNoBooks
	}
	out := make([]Listing, 0, len(c.books))
	for _, b := range c.books {
		out = append(out, Listing{ID: b.ID, Title: b.Title, Author: b.Author, Status: b.Status()})
	}
	return out, nil
}

// Books returns a copy of every book in collection order.
func (c *Catalog) Books() []Book { return slices.Clone(c.books) }

// Book looks a book up by id.
func (c *Catalog) Book(id uint32) (Book, bool) {
	for _, b := range c.books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

// ------------------ Users ------------------

// AddUser registers name. Names are compared exactly, case included.
func (c *Catalog) AddUser(name string) (User, error) {
	if c.userIndex(name) >= 0 {
		return User{}, fmt.Errorf("%w: %q", ErrDuplicateUser, name)
	}
	u := User{
		ID:            uint32(len(c.users)) + 1,
		Name:          name,
		BorrowedBooks: []uint32{},
	}
	c.users = append(c.users, u)
	return cloneUser(u), nil
}

// Users returns a copy of every user in collection order.
func (c *Catalog) Users() []User {
	out := make([]User, len(c.users))
	for i, u := range c.users {
		out[i] = cloneUser(u)
	}
	return out
}

// User looks a user up by exact name.
func (c *Catalog) User(name string) (User, bool) {
	i := c.userIndex(name)
	if i < 0 {
		return User{}, false
	}
	return cloneUser(c.users[i]), true
}

// ------------------ Circulation ------------------

// IssueBook lends the first available copy of title, in collection order,
// to the named user.
func (c *Catalog) IssueBook(title, userName string) (Book, error) {
	ui := c.userIndex(userName)
	if ui < 0 {
		return Book{}, fmt.Errorf("%w: %q", ErrUnknownUser, userName)
	}
	bi := c.bookIndex(title, false)
	if bi < 0 {
		return Book{}, fmt.Errorf("%w: %q", ErrBookUnavailable, title)
	}

	c.books[bi].IsIssued = true
	c.users[ui].BorrowedBooks = append(c.users[ui].BorrowedBooks, c.books[bi].ID)
	return c.books[bi], nil
}

// ReturnBook takes back the first issued copy of title from the named user.
// The copy is resolved before the holder is checked, so when several copies
// of one title are out only the first of them can be returned.
func (c *Catalog) ReturnBook(title, userName string) (Book, error) {
	ui := c.userIndex(userName)
	if ui < 0 {
		return Book{}, fmt.Errorf("%w: %q", ErrUnknownUser, userName)
	}
	bi := c.bookIndex(title, true)
	if bi < 0 {
		return Book{}, fmt.Errorf("%w: %q", ErrBookNotIssued, title)
	}
	id := c.books[bi].ID
	pos := slices.Index(c.users[ui].BorrowedBooks, id)
	if pos < 0 {
		return Book{}, fmt.Errorf("%w: %q did not borrow %q", ErrNotBorrowedByUser, userName, title)
	}

	c.books[bi].IsIssued = false
	c.users[ui].BorrowedBooks = slices.Delete(c.users[ui].BorrowedBooks, pos, pos+1)
	return c.books[bi], nil
}

// ------------------ Helpers ------------------

func (c *Catalog) userIndex(name string) int {
	return slices.IndexFunc(c.users, func(u User) bool { return u.Name == name })
}

func (c *Catalog) bookIndex(title string, issued bool) int {
	return slices.IndexFunc(c.books, func(b Book) bool { return b.Title == title && b.IsIssued == issued })
}

func cloneUser(u User) User {
	u.BorrowedBooks = slices.Clone(u.BorrowedBooks)
	return u
}
