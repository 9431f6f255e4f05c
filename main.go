package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"library-catalog/config"
	"library-catalog/library"
)

func main() {
	if err := newRootCmd(os.Stdin).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every command needs once flags and config are resolved.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
	store   library.Store
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Keep track of books, users and loans",
		Long:          "Without a subcommand, library starts the interactive menu.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := a.loadOrEmpty(cmd.ErrOrStderr())
			newShell(cat, a.store, stdin, cmd.OutOrStdout(), a.log).run()
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default "+config.DefaultFile+" when present)")
	f.String("file", "", "catalog file (default library.json, or library.db with the sqlite store)")
	f.String("store", config.StoreJSON, "storage backend: json or sqlite")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-format", "auto", "log format: auto, text or json")
	for key, flag := range map[string]string{
		"file":       "file",
		"store":      "store",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(
		a.booksCmd(),
		a.usersCmd(),
		a.addBookCmd(),
		a.addUserCmd(),
		a.issueCmd(),
		a.returnCmd(),
		a.checkCmd(),
	)
	return root
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	a.store = openStore(cfg, log)
	a.log.Debug("configured", "store", cfg.Store, "file", cfg.File)
	return nil
}

// loadOrEmpty is the shell's startup: a damaged file is reported and the
// session starts from an empty catalog.
func (a *app) loadOrEmpty(errOut io.Writer) *library.Catalog {
	cat, err := a.store.Load()
	if err != nil {
		a.log.Warn("load failed", "path", a.store.Path(), "err", err)
		fmt.Fprintf(errOut, "Error loading library: %v. Starting with empty library.\n", err)
		return library.New()
	}
	return cat
}

func openStore(cfg *config.Config, log *slog.Logger) library.Store {
	if cfg.Store == config.StoreSQLite {
		return library.NewSQLiteStore(cfg.File, log)
	}
	return library.NewJSONStore(cfg.File, log)
}

func newLogger(cfg config.Log, w io.Writer) (*slog.Logger, error) {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	format := cfg.Format
	if format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

// ---------------------------------------------------------------------------
// One-shot commands
// ---------------------------------------------------------------------------

// mutate loads the catalog, applies fn and saves. A load error aborts so a
// damaged file is never overwritten.
func (a *app) mutate(cmd *cobra.Command, fn func(*library.Catalog) (string, error)) error {
	cat, err := a.store.Load()
	if err != nil {
		return err
	}
	msg, err := fn(cat)
	if err != nil {
		return err
	}
	if err := a.store.Save(cat); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func (a *app) booksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List all books with their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := a.store.Load()
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), cat)
			return nil
		},
	}
}

func (a *app) usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List all users with the ids of the books they hold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := a.store.Load()
			if err != nil {
				return err
			}
			users := cat.Users()
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users registered.")
				return nil
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "ID: %d, Name: %s, Borrowed: %v\n", u.ID, u.Name, u.BorrowedBooks)
			}
			return nil
		},
	}
}

func (a *app) addBookCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-book TITLE AUTHOR",
		Short: "Add a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, author := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if blank(title, author) {
				return errors.New("title and author cannot be empty")
			}
			return a.mutate(cmd, func(cat *library.Catalog) (string, error) {
				return addBookOutcome(cat.AddBook(title, author)), nil
			})
		},
	}
}

func (a *app) addUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-user NAME",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if blank(name) {
				return errors.New("name cannot be empty")
			}
			return a.mutate(cmd, func(cat *library.Catalog) (string, error) {
				_, err := cat.AddUser(name)
				return addUserOutcome(name, err), err
			})
		},
	}
}

func (a *app) issueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue TITLE USER",
		Short: "Issue the first available copy of a title to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, user := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if blank(title, user) {
				return errors.New("title and user name cannot be empty")
			}
			return a.mutate(cmd, func(cat *library.Catalog) (string, error) {
				_, err := cat.IssueBook(title, user)
				return issueOutcome(title, user, err), err
			})
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return TITLE USER",
		Short: "Return a title held by a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, user := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if blank(title, user) {
				return errors.New("title and user name cannot be empty")
			}
			return a.mutate(cmd, func(cat *library.Catalog) (string, error) {
				_, err := cat.ReturnBook(title, user)
				return returnOutcome(title, user, err), err
			})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that loans and book statuses agree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := a.store.Load()
			if err != nil {
				return err
			}
			if err := cat.Verify(); err != nil {
				return err
			}
			onLoan := 0
			for _, b := range cat.Books() {
				if b.IsIssued {
					onLoan++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d books, %d users, %d on loan\n", len(cat.Books()), len(cat.Users()), onLoan)
			return nil
		},
	}
}
