package library

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

// DefaultPath is where the shell keeps the catalog between runs.
const DefaultPath = "library.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists a whole catalog. A missing backing file loads as an empty
// catalog; Save always replaces the previous contents in full.
type Store interface {
	Load() (*Catalog, error)
	Save(*Catalog) error
	Path() string
}

// Load reads the JSON document at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: invalid UTF-8", ErrFormat, path)
	}
	c, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrFormat, path, err)
	}
	return c, nil
}

// Save writes the catalog to path as a JSON document, overwriting any
// existing file.
func (c *Catalog) Save(path string) error {
	data, err := c.encode()
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrFormat, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Wire format
// ---------------------------------------------------------------------------

// Every field is required on the way in; pointers tell a missing field from
// a zero value.
type document struct {
	Books *[]bookRecord `json:"books"`
	Users *[]userRecord `json:"users"`
}

type bookRecord struct {
	ID       *uint32 `json:"id"`
	Title    *string `json:"title"`
	Author   *string `json:"author"`
	IsIssued *bool   `json:"is_issued"`
}

type userRecord struct {
	ID            *uint32    `json:"id"`
	Name          *string    `json:"name"`
	BorrowedBooks *[]*uint32 `json:"borrowed_books"`
}

type savedDocument struct {
	Books []Book `json:"books"`
	Users []User `json:"users"`
}

func decode(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Books == nil {
		return nil, errors.New("missing field books")
	}
	if doc.Users == nil {
		return nil, errors.New("missing field users")
	}

	c := &Catalog{
		books: make([]Book, 0, len(*doc.Books)),
		users: make([]User, 0, len(*doc.Users)),
	}
	for i, r := range *doc.Books {
		if r.ID == nil || r.Title == nil || r.Author == nil || r.IsIssued == nil {
			return nil, fmt.Errorf("books[%d]: missing field", i)
		}
		c.books = append(c.books, Book{ID: *r.ID, Title: *r.Title, Author: *r.Author, IsIssued: *r.IsIssued})
	}
	for i, r := range *doc.Users {
		if r.ID == nil || r.Name == nil || r.BorrowedBooks == nil {
			return nil, fmt.Errorf("users[%d]: missing field", i)
		}
		borrowed := make([]uint32, 0, len(*r.BorrowedBooks))
		for j, id := range *r.BorrowedBooks {
			if id == nil {
				return nil, fmt.Errorf("users[%d].borrowed_books[%d]: null", i, j)
			}
			borrowed = append(borrowed, *id)
		}
		c.users = append(c.users, User{ID: *r.ID, Name: *r.Name, BorrowedBooks: borrowed})
	}
	return c, nil
}

func (c *Catalog) encode() ([]byte, error) {
	doc := savedDocument{Books: c.Books(), Users: c.Users()}
	if doc.Books == nil {
		doc.Books = []Book{}
	}
	for i := range doc.Users {
		if doc.Users[i].BorrowedBooks == nil {
			doc.Users[i].BorrowedBooks = []uint32{}
		}
	}
	return json.Marshal(doc)
}

// ---------------------------------------------------------------------------
// JSON file store
// ---------------------------------------------------------------------------

// JSONStore keeps the catalog in a single JSON document.
type JSONStore struct {
	path string
	log  *slog.Logger
}

// NewJSONStore returns a store for the document at path. A nil logger
// discards diagnostics.
func NewJSONStore(path string, log *slog.Logger) *JSONStore {
	return &JSONStore{path: path, log: orDiscard(log)}
}

// Path is the document location.
func (s *JSONStore) Path() string { return s.path }

// Load reads the document; see Load.
func (s *JSONStore) Load() (*Catalog, error) {
	c, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.log.Debug("catalog loaded", "path", s.path, "books", len(c.books), "users", len(c.users))
	return c, nil
}

// Save overwrites the document with c.
func (s *JSONStore) Save(c *Catalog) error {
	if err := c.Save(s.path); err != nil {
		return err
	}
	s.log.Debug("catalog saved", "path", s.path, "books", len(c.books), "users", len(c.users))
	return nil
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log
}
