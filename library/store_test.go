package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

// busyCatalog exercises every field: issued and available books, a shared
// title, a user with loans and one without.
func busyCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := seeded(t, []string{"Dune", "Echo", "Echo"}, "Alice", "Bob")
	_, err := c.IssueBook("Echo", "Bob")
	require.NoError(t, err)
	_, err = c.IssueBook("Dune", "Bob")
	require.NoError(t, err)
	return c
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(tempPath(t, "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, New(), c)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, c := range map[string]*Catalog{
		"empty": New(),
		"busy":  busyCatalog(t),
	} {
		t.Run(name, func(t *testing.T) {
			path := tempPath(t, "library.json")
			require.NoError(t, c.Save(path))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

func TestSaveWireFormat(t *testing.T) {
	path := tempPath(t, "library.json")
	c := New()
	c.AddBook("Dune", "Herbert")
	_, err := c.AddUser("Alice")
	require.NoError(t, err)
	require.NoError(t, c.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"books": [{"id": 1, "title": "Dune", "author": "Herbert", "is_issued": false}],
		"users": [{"id": 1, "name": "Alice", "borrowed_books": []}]
	}`, string(data))
}

func TestSaveEmptyWritesArrays(t *testing.T) {
	path := tempPath(t, "library.json")
	require.NoError(t, New().Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"books": [], "users": []}`, string(data))
}

func TestSaveOverwrites(t *testing.T) {
	path := tempPath(t, "library.json")
	writeFile(t, path, `{"books": [{"id": 9, "title": "Old", "author": "X", "is_issued": false}], "users": [], "junk": 1}`)

	require.NoError(t, New().Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, got.Books())
}

func TestLoadAcceptsPreviouslySavedFile(t *testing.T) {
	path := tempPath(t, "library.json")
	writeFile(t, path, `{"books":[{"id":1,"title":"Dune","author":"Herbert","is_issued":true}],`+
		`"users":[{"id":1,"name":"Alice","borrowed_books":[1]}]}`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []Book{{ID: 1, Title: "Dune", Author: "Herbert", IsIssued: true}}, c.Books())
	assert.Equal(t, []User{{ID: 1, Name: "Alice", BorrowedBooks: []uint32{1}}}, c.Users())
	assert.NoError(t, c.Verify())
}

func TestLoadFormatErrors(t *testing.T) {
	tests := map[string]string{
		"invalid json":       `{"books": [`,
		"not an object":      `[1, 2, 3]`,
		"null document":      `null`,
		"missing users":      `{"books": []}`,
		"missing books":      `{"users": []}`,
		"null books":         `{"books": null, "users": []}`,
		"wrong type":         `{"books": "Dune", "users": []}`,
		"missing book field": `{"books": [{"id": 1, "title": "Dune", "author": "Herbert"}], "users": []}`,
		"missing user field": `{"books": [], "users": [{"id": 1, "name": "Alice"}]}`,
		"negative id":        `{"books": [{"id": -1, "title": "Dune", "author": "Herbert", "is_issued": false}], "users": []}`,
		"string id":          `{"books": [], "users": [{"id": "1", "name": "Alice", "borrowed_books": []}]}`,
		"trailing garbage":   `{"books": [], "users": []} x`,
		"null borrowed id":   `{"books": [], "users": [{"id": 1, "name": "A", "borrowed_books": [null]}]}`,
		"invalid utf-8":      "{\"books\": [{\"id\": 1, \"title\": \"\xff\", \"author\": \"X\", \"is_issued\": false}], \"users\": []}",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := tempPath(t, "library.json")
			writeFile(t, path, data)

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrFormat)
			assert.NotErrorIs(t, err, ErrIO)
		})
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	path := tempPath(t, "library.json")
	writeFile(t, path, `{"books": [], "users": [], "version": 3}`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, New(), c)
}

func TestLoadIOError(t *testing.T) {
	// A directory exists but cannot be read as a file.
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrIO)
}

func TestSaveIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "library.json")
	err := New().Save(path)
	assert.ErrorIs(t, err, ErrIO)
}

func TestJSONStore(t *testing.T) {
	s := NewJSONStore(tempPath(t, "library.json"), nil)

	c, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, New(), c)

	want := busyCatalog(t)
	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
