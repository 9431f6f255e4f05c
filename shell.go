package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"library-catalog/library"
)

const menu = `
Library Management System
1. Add Book
2. Add User
3. Issue Book
4. Return Book
5. Display Books
6. Exit
Enter choice: `

// shell is the numbered interactive menu. It owns the catalog for the
// lifetime of the session and saves it on exit.
type shell struct {
	cat   *library.Catalog
	store library.Store
	in    *bufio.Reader
	out   io.Writer
	log   *slog.Logger
}

func newShell(cat *library.Catalog, store library.Store, in io.Reader, out io.Writer, log *slog.Logger) *shell {
	return &shell{cat: cat, store: store, in: bufio.NewReader(in), out: out, log: log}
}

// run loops until choice 6 or end of input. Both save the catalog.
func (s *shell) run() {
	fmt.Fprintf(s.out, "Library initialized with %d books and %d users\n", len(s.cat.Books()), len(s.cat.Users()))

	for {
		fmt.Fprintln(s.out, menu)
		line, ok := s.readLine()
		if !ok {
			s.log.Debug("input closed")
			s.exit()
			return
		}

		choice, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			fmt.Fprintln(s.out, "Invalid input! Please enter a number.")
			continue
		}

		switch choice {
		case 1:
			s.handleAddBook()
		case 2:
			s.handleAddUser()
		case 3:
			s.handleIssueBook()
		case 4:
			s.handleReturnBook()
		case 5:
			s.handleDisplayBooks()
		case 6:
			s.exit()
			return
		default:
			fmt.Fprintln(s.out, "Invalid choice! Please select 1-6.")
		}
	}
}

// readLine returns the next trimmed line of any length. A final line without
// a newline still counts. A read failure is reported and ends input.
func (s *shell) readLine() (string, bool) {
	line, err := s.in.ReadString('\n')
	if err == nil || (errors.Is(err, io.EOF) && line != "") {
		return strings.TrimSpace(line), true
	}
	if !errors.Is(err, io.EOF) {
		s.log.Error("read input failed", "err", err)
		fmt.Fprintf(s.out, "Error reading input: %v\n", err)
	}
	return "", false
}

// prompt prints each label and reads one trimmed line per label. It reports
// false when input ends early.
func (s *shell) prompt(labels ...string) ([]string, bool) {
	answers := make([]string, 0, len(labels))
	for _, label := range labels {
		fmt.Fprintln(s.out, label)
		line, ok := s.readLine()
		if !ok {
			return nil, false
		}
		answers = append(answers, line)
	}
	return answers, true
}

func (s *shell) handleAddBook() {
	in, ok := s.prompt("Enter book title: ", "Enter book author: ")
	if !ok {
		return
	}
	if blank(in...) {
		fmt.Fprintln(s.out, "Error: Title and author cannot be empty!")
		return
	}
	b := s.cat.AddBook(in[0], in[1])
	s.log.Debug("book added", "id", b.ID)
	fmt.Fprintln(s.out, addBookOutcome(b))
}

func (s *shell) handleAddUser() {
	in, ok := s.prompt("Enter user name: ")
	if !ok {
		return
	}
	if blank(in...) {
		fmt.Fprintln(s.out, "Error: Name cannot be empty!")
		return
	}
	_, err := s.cat.AddUser(in[0])
	fmt.Fprintln(s.out, addUserOutcome(in[0], err))
}

func (s *shell) handleIssueBook() {
	in, ok := s.prompt("Enter book title to issue: ", "Enter user name: ")
	if !ok {
		return
	}
	if blank(in...) {
		fmt.Fprintln(s.out, "Error: Title and user name cannot be empty!")
		return
	}
	_, err := s.cat.IssueBook(in[0], in[1])
	fmt.Fprintln(s.out, issueOutcome(in[0], in[1], err))
}

func (s *shell) handleReturnBook() {
	in, ok := s.prompt("Enter book title to return: ", "Enter user name: ")
	if !ok {
		return
	}
	if blank(in...) {
		fmt.Fprintln(s.out, "Error: Title and user name cannot be empty!")
		return
	}
	_, err := s.cat.ReturnBook(in[0], in[1])
	fmt.Fprintln(s.out, returnOutcome(in[0], in[1], err))
}

func (s *shell) handleDisplayBooks() {
	printBooks(s.out, s.cat)
}

func (s *shell) exit() {
	if err := s.store.Save(s.cat); err != nil {
		s.log.Error("save failed", "path", s.store.Path(), "err", err)
		fmt.Fprintf(s.out, "Error saving data: %v\n", err)
	} else {
		fmt.Fprintf(s.out, "Data saved to %s\n", s.store.Path())
	}
	fmt.Fprintln(s.out, "Exiting...")
}

// ------------------ Rendering ------------------

func printBooks(w io.Writer, cat *library.Catalog) {
	books, err := cat.ListBooks()
	if errors.Is(err, library.ErrNoBooks) {
		fmt.Fprintln(w, "No books available.")
		return
	}
	fmt.Fprintln(w, "\nLibrary Books:")
	for _, b := range books {
		fmt.Fprintf(w, "ID: %d, Title: %s, Author: %s, Status: %s\n", b.ID, b.Title, b.Author, b.Status)
	}
}

func addBookOutcome(b library.Book) string {
	return fmt.Sprintf("Book '%s' by '%s' added", b.Title, b.Author)
}

func addUserOutcome(name string, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("User '%s' added", name)
	case errors.Is(err, library.ErrDuplicateUser):
		return fmt.Sprintf("Error: User '%s' already exists!", name)
	}
	return fmt.Sprintf("Error: %v", err)
}

func issueOutcome(title, user string, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("Book '%s' issued to user '%s'", title, user)
	case errors.Is(err, library.ErrUnknownUser):
		return fmt.Sprintf("No user found with name '%s'. Please register first!", user)
	case errors.Is(err, library.ErrBookUnavailable):
		return fmt.Sprintf("No available book found with title '%s'.", title)
	}
	return fmt.Sprintf("Error: %v", err)
}

func returnOutcome(title, user string, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("Book '%s' returned by user '%s'", title, user)
	case errors.Is(err, library.ErrUnknownUser):
		return fmt.Sprintf("No user found with name '%s'.", user)
	case errors.Is(err, library.ErrBookNotIssued):
		return fmt.Sprintf("No issued book found with title '%s'.", title)
	case errors.Is(err, library.ErrNotBorrowedByUser):
		return fmt.Sprintf("User '%s' did not borrow book '%s'.", user, title)
	}
	return fmt.Sprintf("Error: %v", err)
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}
