package lookup

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/routing"
)

// Command creates the lookup command, which shows what the catalog knows about a plate.
func Command(ctx *bootstrap.Context) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "lookup <plate>",
		Short: "Look up a bus by license plate",
		Long:  "Show the route of a bus. With --from or --to also tell whether it serves the trip.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			bus, err := store.FindByPlate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			PrintBus(out, bus)
			if from != "" || to != "" {
				PrintVerdict(out, routing.MatchBus(bus, from, to, time.Now()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Where the trip starts")
	cmd.Flags().StringVar(&to, "to", "", "Where the trip ends")
	return cmd
}

// PrintBus writes a short description of bus.
func PrintBus(w io.Writer, bus *catalog.Bus) {
	fmt.Fprintf(w, "Plate:     %s\n", bus.PlateKey)
	if bus.Route != nil {
		fmt.Fprintf(w, "Route:     %s %s\n", bus.Route.Code, bus.Route.Name)
		fmt.Fprintf(w, "Stations:  %s\n", strings.Join(bus.Route.StationNames(), " > "))
	}
	if bus.LastSeen != nil {
		fmt.Fprintf(w, "Last seen: %s (%d sightings)\n", bus.LastSeen.Local().Format(time.DateTime), bus.Sightings)
	}
}

// PrintVerdict writes whether the bus serves the trip and its stops.
func PrintVerdict(w io.Writer, v routing.Verdict) {
	if !v.Serves {
		fmt.Fprintf(w, "%s does not serve this trip\n", v.Plate)
		return
	}
	fmt.Fprintf(w, "%s serves this trip:\n", v.Plate)
	for _, s := range v.Stops {
		marker := ""
		if s.Marker != routing.MarkerNone {
			marker = " [" + string(s.Marker) + "]"
		}
		eta := ""
		if s.Arrival != nil {
			eta = " " + s.Arrival.Local().Format("15:04")
		}
		fmt.Fprintf(w, "  %2d. %s%s%s\n", s.Sequence, s.Name, marker, eta)
	}
}
