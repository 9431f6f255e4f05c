package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/library"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "import_books SOURCE.tsv",
		Short:         "Add every title<TAB>author row of SOURCE to the catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			var store library.Store = library.NewJSONStore(cfg.File, nil)
			if cfg.Store == config.StoreSQLite {
				store = library.NewSQLiteStore(cfg.File, nil)
			}

			cat, err := store.Load()
			if err != nil {
				return err
			}

			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing books from %s...\n", args[0])
			added, skipped, err := importRows(cat, f, out)
			if err != nil {
				return err
			}
			if added > 0 {
				if err := store.Save(cat); err != nil {
					return err
				}
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", added)
			fmt.Fprintf(out, "Skipped: %d\n", skipped)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultFile+" when present)")
	f.String("file", "", "catalog file")
	f.String("store", config.StoreJSON, "storage backend: json or sqlite")
	_ = v.BindPFlag("file", f.Lookup("file"))
	_ = v.BindPFlag("store", f.Lookup("store"))
	return cmd
}

// importRows adds one book per title<TAB>author row. Rows with a blank
// field or the wrong number of columns are skipped with a warning.
func importRows(cat *library.Catalog, r io.Reader, out io.Writer) (added, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return added, skipped, nil
		}
		if err != nil {
			return added, skipped, fmt.Errorf("read source: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != 2 {
			fmt.Fprintf(out, "Warning: line %d has %d columns, skipping\n", line, len(rec))
			skipped++
			continue
		}
		title, author := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if title == "" || author == "" {
			fmt.Fprintf(out, "Warning: line %d has an empty title or author, skipping\n", line)
			skipped++
			continue
		}

		b := cat.AddBook(title, author)
		fmt.Fprintf(out, "Importing: %s by %s... SUCCESS (ID: %d)\n", title, author, b.ID)
		added++
	}
}
