package library

// Book is one catalog entry. A book is either on the shelf or issued to
// exactly one user; the holder is recorded on the user side.
type Book struct {
	ID       uint32 `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	IsIssued bool   `json:"is_issued"`
}

// Status is the label shown for a book in listings.
func (b Book) Status() string {
	if b.IsIssued {
		return StatusIssued
	}
	return StatusAvailable
}

// User represents a registered borrower.
type User struct {
	ID            uint32   `json:"id"`
	Name          string   `json:"name"`
	BorrowedBooks []uint32 `json:"borrowed_books"`
}

// Borrowed reports whether the user currently holds the book with the given id.
func (u User) Borrowed(bookID uint32) bool {
	for _, id := range u.BorrowedBooks {
		if id == bookID {
			return true
		}
	}
	return false
}

const (
	StatusIssued    = "Issued"
	StatusAvailable = "Available"
)

// Listing is the read-only view of a book used by ListBooks.
type Listing struct {
	ID     uint32
	Title  string
	Author string
	Status string
}
