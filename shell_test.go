package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

// runShell feeds input to a shell over an empty catalog backed by a JSON
// file in a temp dir. It returns the output and the catalog as saved.
func runShell(t *testing.T, input string) (string, *library.Catalog) {
	t.Helper()
	store := library.NewJSONStore(filepath.Join(t.TempDir(), "library.json"), nil)
	var out bytes.Buffer
	newShell(library.New(), store, strings.NewReader(input), &out, slog.New(slog.DiscardHandler)).run()

	saved, err := store.Load()
	require.NoError(t, err)
	return out.String(), saved
}

func TestShellSession(t *testing.T) {
	out, saved := runShell(t, strings.Join([]string{
		"1", "Dune", "Herbert",
		"2", "Alice",
		"3", "Dune", "Alice",
		"5",
		"4", "Dune", "Alice",
		"5",
		"6",
	}, "\n")+"\n")

	assert.Contains(t, out, "Library initialized with 0 books and 0 users")
	assert.Contains(t, out, "Book 'Dune' by 'Herbert' added")
	assert.Contains(t, out, "User 'Alice' added")
	assert.Contains(t, out, "Book 'Dune' issued to user 'Alice'")
	assert.Contains(t, out, "ID: 1, Title: Dune, Author: Herbert, Status: Issued")
	assert.Contains(t, out, "Book 'Dune' returned by user 'Alice'")
	assert.Contains(t, out, "ID: 1, Title: Dune, Author: Herbert, Status: Available")
	assert.Contains(t, out, "Data saved to ")
	assert.True(t, strings.HasSuffix(out, "Exiting...\n"))

	assert.Equal(t, []library.Book{{ID: 1, Title: "Dune", Author: "Herbert"}}, saved.Books())
	assert.Equal(t, []library.User{{ID: 1, Name: "Alice", BorrowedBooks: []uint32{}}}, saved.Users())
}

func TestShellMessages(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"non numeric", []string{"abc"}, "Invalid input! Please enter a number."},
		{"negative", []string{"-1"}, "Invalid input! Please enter a number."},
		{"out of range", []string{"9"}, "Invalid choice! Please select 1-6."},
		{"zero", []string{"0"}, "Invalid choice! Please select 1-6."},
		{"blank title", []string{"1", "", "Herbert"}, "Error: Title and author cannot be empty!"},
		{"blank name", []string{"2", "  "}, "Error: Name cannot be empty!"},
		{"duplicate user", []string{"2", "Alice", "2", "Alice"}, "Error: User 'Alice' already exists!"},
		{"issue blank", []string{"3", "Dune", ""}, "Error: Title and user name cannot be empty!"},
		{"issue unknown user", []string{"3", "Dune", "Bob"}, "No user found with name 'Bob'. Please register first!"},
		{"issue unavailable", []string{"2", "Alice", "3", "Dune", "Alice"}, "No available book found with title 'Dune'."},
		{"return blank", []string{"4", "", "Alice"}, "Error: Title and user name cannot be empty!"},
		{"return unknown user", []string{"4", "Dune", "Bob"}, "No user found with name 'Bob'."},
		{"return not issued", []string{"2", "Alice", "4", "Dune", "Alice"}, "No issued book found with title 'Dune'."},
		{"return wrong user", []string{
			"1", "Dune", "Herbert", "2", "Alice", "2", "Bob", "3", "Dune", "Alice", "4", "Dune", "Bob",
		}, "User 'Bob' did not borrow book 'Dune'."},
		{"display empty", []string{"5"}, "No books available."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runShell(t, strings.Join(append(tt.input, "6"), "\n")+"\n")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestShellSavesAtEndOfInput(t *testing.T) {
	out, saved := runShell(t, "2\nAlice\n")
	assert.Contains(t, out, "Data saved to ")
	_, ok := saved.User("Alice")
	assert.True(t, ok)
}

func TestShellInputEndsMidPrompt(t *testing.T) {
	out, saved := runShell(t, "1\nDune\n")
	assert.Contains(t, out, "Exiting...")
	assert.Empty(t, saved.Books())
}

func TestShellAcceptsLongLines(t *testing.T) {
	title := strings.Repeat("x", 70000)
	out, saved := runShell(t, strings.Join([]string{
		"2", "Alice",
		"1", title, "Author",
		"2", "Bob",
		"6",
	}, "\n")+"\n")

	assert.NotContains(t, out, "Error reading input")
	books := saved.Books()
	require.Len(t, books, 1)
	assert.Equal(t, title, books[0].Title)
	_, ok := saved.User("Bob")
	assert.True(t, ok)
}

func TestShellLastLineWithoutNewline(t *testing.T) {
	_, saved := runShell(t, "2\nAlice")
	_, ok := saved.User("Alice")
	assert.True(t, ok)
}

func TestShellReportsReadError(t *testing.T) {
	store := library.NewJSONStore(filepath.Join(t.TempDir(), "library.json"), nil)
	in := io.MultiReader(strings.NewReader("2\nAlice\n"), iotest.ErrReader(errors.New("device gone")))
	var out bytes.Buffer
	newShell(library.New(), store, in, &out, slog.New(slog.DiscardHandler)).run()

	assert.Contains(t, out.String(), "Error reading input: device gone")
	assert.Contains(t, out.String(), "Data saved to ")
	saved, err := store.Load()
	require.NoError(t, err)
	_, ok := saved.User("Alice")
	assert.True(t, ok)
}

func TestShellReportsSaveFailure(t *testing.T) {
	store := library.NewJSONStore(filepath.Join(t.TempDir(), "missing", "library.json"), nil)
	var out bytes.Buffer
	newShell(library.New(), store, strings.NewReader("6\n"), &out, slog.New(slog.DiscardHandler)).run()

	assert.Contains(t, out.String(), "Error saving data: ")
	assert.Contains(t, out.String(), "Exiting...")
}
