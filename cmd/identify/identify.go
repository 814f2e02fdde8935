// Package identify implements the identify subcommand for one-shot
// identification of an image file from the command line.
package identify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verdanthq/plantid-go/internal/camera"
	"github.com/verdanthq/plantid-go/internal/conf"
	"github.com/verdanthq/plantid-go/internal/history"
	"github.com/verdanthq/plantid-go/internal/httpclient"
	"github.com/verdanthq/plantid-go/internal/plantid"
)

// Command creates the identify subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "identify <image-file>",
		Short: "Identify the plant in an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, args[0], save)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the result to the identification history")

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, path string, save bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	if _, err := camera.ValidateUpload(data); err != nil {
		return fmt.Errorf("invalid image: %w", err)
	}

	optimized, err := camera.OptimizeImage(data, settings.Camera.MaxWidth, settings.Camera.OptimQuality)
	if err != nil {
		return fmt.Errorf("failed to optimize image: %w", err)
	}

	cfg := httpclient.DefaultConfig()
	cfg.DefaultTimeout = settings.AI.Timeout
	hc := httpclient.New(&cfg)
	defer hc.Close()

	identifier := plantid.New(settings, hc, nil)
	result := identifier.Identify(cmd.Context(), optimized, "image/jpeg")

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !result.Success {
		return fmt.Errorf("identification failed: %s", result.Error)
	}

	if save {
		store, err := history.Open(settings, nil)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer func() { _ = store.Close() }()

		if _, err := store.Save(result.Record(), ""); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
	}

	return nil
}
