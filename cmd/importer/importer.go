// Package importer loads a catalog file into the database from the
// command line, using the same ingestion path as the HTTP endpoint.
package importer

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/obralens/obralens/internal/conf"
	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/logging"
	"github.com/obralens/obralens/internal/normas"
)

// Command creates the import command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "import [archivo.xlsx|archivo.csv]",
		Short: "Import a catalog file into the normas repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, args[0])
		},
	}
}

func run(settings *conf.Settings, path string) error {
	logging.Init()
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}
	logger := logging.ForService("import")

	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer ds.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	summary, err := normas.NewImporter(ds, logger).ImportFile(path, f)
	if err != nil {
		return fmt.Errorf("importing catalog: %w", err)
	}

	fmt.Printf("imported %d rows: %d created, %d updated, %d errors\n",
		summary.Total, summary.Created, summary.Updated, summary.Errors)
	return nil
}
