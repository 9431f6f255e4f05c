package library

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps a full snapshot of the catalog in a SQLite file. Every
// save rewrites all rows inside a single transaction.
type SQLiteStore struct {
	path string
	log  *slog.Logger
}

// NewSQLiteStore returns a store for the database at path. A nil logger
// discards diagnostics.
func NewSQLiteStore(path string, log *slog.Logger) *SQLiteStore {
	return &SQLiteStore{path: path, log: orDiscard(log)}
}

// Path is the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Load reads the snapshot without writing to the file. A missing database
// file, or one that holds no snapshot tables yet, is an empty catalog.
func (s *SQLiteStore) Load() (*Catalog, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, s.path, err)
	}

	db, err := openDatabase(s.path, true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('books','users','loans')`).
		Scan(&tables)
	if err != nil {
		return nil, classify(err, "read schema %s", s.path)
	}
	switch tables {
	case 0:
		return New(), nil
	case len(schema):
	default:
		return nil, fmt.Errorf("%w: %s: incomplete schema", ErrFormat, s.path)
	}

	c, err := readSnapshot(db)
	if err != nil {
		return nil, err
	}
	s.log.Debug("catalog loaded", "path", s.path, "books", len(c.books), "users", len(c.users))
	return c, nil
}

// Save replaces the snapshot with the current catalog.
func (s *SQLiteStore) Save(c *Catalog) error {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create db dir: %w", ErrIO, err)
		}
	}

	db, err := openDatabase(s.path, false)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := writeSnapshot(db, c); err != nil {
		return err
	}
	s.log.Debug("catalog saved", "path", s.path, "books", len(c.books), "users", len(c.users))
	return nil
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// Positions keep collection order, which ids alone do not guarantee for
// imported documents.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
        position INTEGER PRIMARY KEY,
        id INTEGER NOT NULL,
        title TEXT NOT NULL,
        author TEXT NOT NULL,
        is_issued BOOLEAN NOT NULL DEFAULT 0
    );`,
	`CREATE TABLE IF NOT EXISTS users (
        position INTEGER PRIMARY KEY,
        id INTEGER NOT NULL,
        name TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS loans (
        user_position INTEGER NOT NULL REFERENCES users(position),
        position INTEGER NOT NULL,
        book_id INTEGER NOT NULL,
        PRIMARY KEY (user_position, position)
    );`,
}

// openDatabase opens path. Read-only handles never touch the schema; writable
// ones create it first.
func openDatabase(path string, readOnly bool) (*sql.DB, error) {
	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
	if readOnly {
		dsn += "&mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", ErrIO, err)
	}
	if readOnly {
		return db, nil
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, classify(err, "apply schema %s", path)
		}
	}
	return db, nil
}

// classify reports a file that is not a SQLite database as ErrFormat and
// anything else as ErrIO.
func classify(err error, format string, args ...any) error {
	category := ErrIO
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrNotADB {
		category = ErrFormat
	}
	return fmt.Errorf("%w: %s: %w", category, fmt.Sprintf(format, args...), err)
}

// ---------------------------------------------------------------------------
// Snapshot read/write
// ---------------------------------------------------------------------------

func readSnapshot(db *sql.DB) (*Catalog, error) {
	c := New()

	rows, err := db.Query(`SELECT id,title,author,is_issued FROM books ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query books: %w", ErrIO, err)
	}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.IsIssued); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan book: %w", ErrFormat, err)
		}
		c.books = append(c.books, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read books: %w", ErrIO, err)
	}

	rows, err = db.Query(`SELECT position,id,name FROM users ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query users: %w", ErrIO, err)
	}
	byPosition := make(map[int64]int)
	for rows.Next() {
		var pos int64
		u := User{BorrowedBooks: []uint32{}}
		if err := rows.Scan(&pos, &u.ID, &u.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan user: %w", ErrFormat, err)
		}
		byPosition[pos] = len(c.users)
		c.users = append(c.users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read users: %w", ErrIO, err)
	}

	rows, err = db.Query(`SELECT user_position,book_id FROM loans ORDER BY user_position, position`)
	if err != nil {
		return nil, fmt.Errorf("%w: query loans: %w", ErrIO, err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos int64
		var bookID uint32
		if err := rows.Scan(&pos, &bookID); err != nil {
			return nil, fmt.Errorf("%w: scan loan: %w", ErrFormat, err)
		}
		i, ok := byPosition[pos]
		if !ok {
			return nil, fmt.Errorf("%w: loan for unknown user position %d", ErrFormat, pos)
		}
		c.users[i].BorrowedBooks = append(c.users[i].BorrowedBooks, bookID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read loans: %w", ErrIO, err)
	}
	return c, nil
}

// writeSnapshot clears all tables and inserts the catalog in one transaction.
func writeSnapshot(db *sql.DB, c *Catalog) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrIO, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM loans`, `DELETE FROM users`, `DELETE FROM books`} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w: clear snapshot: %w", ErrIO, err)
		}
	}

	addBook, err := tx.Prepare(`INSERT INTO books(position,id,title,author,is_issued) VALUES(?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrIO, err)
	}
	defer addBook.Close()
	addUser, err := tx.Prepare(`INSERT INTO users(position,id,name) VALUES(?,?,?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrIO, err)
	}
	defer addUser.Close()
	addLoan, err := tx.Prepare(`INSERT INTO loans(user_position,position,book_id) VALUES(?,?,?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %w", ErrIO, err)
	}
	defer addLoan.Close()

	for i, b := range c.books {
		if _, err := addBook.Exec(i, b.ID, b.Title, b.Author, b.IsIssued); err != nil {
			return fmt.Errorf("%w: insert book %d: %w", ErrIO, b.ID, err)
		}
	}
	for i, u := range c.users {
		if _, err := addUser.Exec(i, u.ID, u.Name); err != nil {
			return fmt.Errorf("%w: insert user %q: %w", ErrIO, u.Name, err)
		}
		for j, id := range u.BorrowedBooks {
			if _, err := addLoan.Exec(i, j, id); err != nil {
				return fmt.Errorf("%w: insert loan %d: %w", ErrIO, id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrIO, err)
	}
	return nil
}
