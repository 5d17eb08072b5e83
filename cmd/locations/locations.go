package locations

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/logger"
)

// Command creates the locations command and its add and remove subcommands.
func Command(ctx *bootstrap.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Manage saved locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := store.SavedLocations(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tADDRESS\tHOME")
			for _, l := range list {
				home := ""
				if l.IsHome {
					home = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", l.ID, l.Name, l.Address, home)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(addCommand(ctx), removeCommand(ctx))
	return cmd
}

func addCommand(ctx *bootstrap.Context) *cobra.Command {
	var (
		address  string
		lat, lon float64
		home     bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a location",
		Long:  "Save a named location. Without --address the coordinates are reverse geocoded.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := &catalog.SavedLocation{Name: args[0], Address: address, IsHome: home}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				loc.Latitude, loc.Longitude = &lat, &lon
			}

			if loc.Address == "" && loc.Latitude != nil {
				geo, err := ctx.NewGeocoder()
				if err != nil {
					return err
				}
				if geo != nil {
					addr, err := geo.Reverse(cmd.Context(), lat, lon)
					if err != nil {
						logger.Global().Module("cli").Warn("reverse geocoding failed", logger.Error(err))
					} else {
						loc.Address = addr.String()
					}
				}
			}

			store, err := ctx.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveLocation(cmd.Context(), loc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d): %s\n", loc.Name, loc.ID, loc.Address)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Address as \"name | street\"")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	cmd.Flags().BoolVar(&home, "home", false, "Make this the home location")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	return cmd
}

func removeCommand(ctx *bootstrap.Context) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a saved location",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid location id %q", args[0])
			}

			store, err := ctx.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return store.DeleteLocation(cmd.Context(), uint(id))
		},
	}
}
