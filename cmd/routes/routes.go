package routes

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/routing"
)

// Command creates the routes command.
func Command(ctx *bootstrap.Context) *cobra.Command {
	var from, to, code string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Find routes between two places",
		Long:  "List the routes that stop at --from and later at --to. With --route show the itinerary of one route.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc := ctx.NewService(nil, store, nil)
			defer svc.Close()

			out := cmd.OutOrStdout()
			if code != "" {
				stops, err := svc.Itinerary(cmd.Context(), code, from, to)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "#\tSTOP\t\tETA")
				for _, s := range stops {
					marker := ""
					if s.Marker != routing.MarkerNone {
						marker = string(s.Marker)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Sequence, s.Name, marker, s.ETA.Round(time.Minute))
				}
				return w.Flush()
			}

			found, err := svc.FindRoutes(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(out, "No routes found")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tMINUTES\tSTATIONS")
			for _, r := range found {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", r.Code, r.Name, r.DurationMinutes, len(r.Stations))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Where the trip starts")
	cmd.Flags().StringVar(&to, "to", "", "Where the trip ends")
	cmd.Flags().StringVar(&code, "route", "", "Show the itinerary of this route")
	return cmd
}
