package history

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/internal/bootstrap"
)

// Command creates the history command.
func Command(ctx *bootstrap.Context) *cobra.Command {
	var limit int
	var scans, journeys bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently seen buses",
		Long:  "Show buses seen most recently. --scans lists every plate reading, --journeys past route searches.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			switch {
			case scans:
				records, err := store.Scans(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "TIME\tPLATE\tROUTE\tMODE")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.CreatedAt.Local().Format(time.DateTime), r.Plate, r.RouteCode, r.Mode)
				}
			case journeys:
				list, err := store.Journeys(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "TIME\tFROM\tTO\tROUTE")
				for _, j := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.CreatedAt.Local().Format(time.DateTime), j.Origin, j.Destination, j.RouteCode)
				}
			default:
				buses, err := store.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "LAST SEEN\tPLATE\tROUTE\tSIGHTINGS")
				for _, b := range buses {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", b.LastSeen.Local().Format(time.DateTime), b.PlateKey, b.RouteCode(), b.Sightings)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&scans, "scans", false, "List plate readings")
	cmd.Flags().BoolVar(&journeys, "journeys", false, "List route searches")
	cmd.MarkFlagsMutuallyExclusive("scans", "journeys")
	return cmd
}
