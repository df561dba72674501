// Package cli implements the command-line subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/wordflow/internal/config"
	"github.com/mrlokans/wordflow/internal/database"
	"github.com/mrlokans/wordflow/internal/database/imports"
	"github.com/mrlokans/wordflow/internal/database/wordbooks"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/entities"
	"github.com/mrlokans/wordflow/internal/importer"
	"github.com/mrlokans/wordflow/internal/parser"
)

// ImportWordsCommand imports a vocabulary file from the command line,
// waiting for the job to finish instead of polling.
type ImportWordsCommand struct {
	FilePath     string
	DatabasePath string
	WordbookID   uint
	Format       string
	Verbose      bool
}

// NewImportWordsCommand creates a new ImportWordsCommand.
func NewImportWordsCommand() *ImportWordsCommand {
	return &ImportWordsCommand{}
}

// ParseFlags parses command line flags.
func (cmd *ImportWordsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.Format, "format", "auto", "Input format: csv, tsv, json or auto")
	wordbookID := fs.Uint("wordbook", 0, "Target wordbook id (defaults to the active wordbook)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options] <file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a vocabulary file (CSV, TSV or JSON) into a wordbook.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import vocab.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -wordbook 2 -format tsv lessons.tsv\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.WordbookID = uint(*wordbookID)

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one input file is required")
	}
	cmd.FilePath = fs.Arg(0)
	return nil
}

// Run executes the import and prints the outcome.
func (cmd *ImportWordsCommand) Run() error {
	payload, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", cmd.FilePath, err)
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	wordbookRepo := wordbooks.NewRepository(db)
	wordRepo := words.NewRepository(db)
	importRepo := imports.NewRepository(db)

	ctx := context.Background()
	supervisor := importer.NewSupervisor(ctx, wordbookRepo, wordRepo, importRepo, importer.Config{Workers: 1})

	job, err := supervisor.Start(payload, filepath.Base(cmd.FilePath), parser.Format(cmd.Format), cmd.WordbookID)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	if err := supervisor.Shutdown(waitCtx); err != nil {
		return err
	}

	job, err = supervisor.Progress(job.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Import %d %s: %d inserted, %d skipped, %d failed (of %d)\n",
		job.ID, job.Status, job.Succeeded, job.Skipped, job.Failed, job.Total)
	if cmd.Verbose && job.Message != "" {
		fmt.Printf("Diagnostics: %s\n", job.Message)
	}
	if job.Status == entities.ImportStatusFailed {
		return fmt.Errorf("import failed: %s", job.Message)
	}
	return nil
}
