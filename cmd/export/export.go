// Package export implements the export subcommand, writing the
// identification history as JSON.
package export

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/history"
)

// Command creates the export subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "export [output-file]",
		Short: "Export the identification history as JSON",
		Long: "Export the identification history as JSON. " +
			"Writes to the given file, or to stdout when no file is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(settings, nil)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer func() { _ = store.Close() }()

			if len(args) == 0 {
				return store.Export(cmd.OutOrStdout())
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			if err := store.Export(f); err != nil {
				_ = f.Close()
				return fmt.Errorf("failed to export history: %w", err)
			}
			return f.Close()
		},
	}
}
