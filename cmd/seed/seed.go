package seed

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/catalog"
)

// Command creates the seed command.
func Command(ctx *bootstrap.Context) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load routes and buses into the catalog",
		Long:  "Upsert routes, buses and saved locations from a YAML seed file, or the built-in data when none is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = ctx.Settings.Catalog.SeedFile
			}

			store, err := catalog.Open(ctx.Settings.Catalog)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := bootstrap.SeedCatalog(cmd.Context(), store, file); err != nil {
				return err
			}
			routes, err := store.Routes(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog holds %d routes\n", len(routes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	return cmd
}
