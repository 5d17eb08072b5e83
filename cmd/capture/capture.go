package capture

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/cmd/lookup"
	"github.com/blinkbus/blink-go/internal/app"
	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/camera"
)

// Command creates the capture command, which runs capture mode on image files.
func Command(ctx *bootstrap.Context) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "capture <image>...",
		Short: "Read bus plates from image files",
		Long:  "Run single-shot plate recognition on each image, or each image in a directory, and look the plate up in the catalog.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := camera.NewFileSource(0, args...)
			if err != nil {
				return err
			}

			sc, err := ctx.NewScanner(source)
			if err != nil {
				return err
			}
			defer func() { _ = sc.Close() }()

			store, err := ctx.OpenCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc := ctx.NewService(sc.Controller, store, nil)
			defer svc.Close()
			svc.SetTrip(app.Trip{From: from, To: to})

			frames, err := source.Frames(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var total, failed int
			for frame := range frames {
				total++
				label := fmt.Sprintf("image %d", frame.Seq)
				outcome, err := svc.CaptureFrame(cmd.Context(), frame)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", label, err)
					failed++
					continue
				}
				PrintOutcome(out, label, outcome)
				if outcome.Detection == nil {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("no plate read from %d of %d images", failed, total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Where the trip starts")
	cmd.Flags().StringVar(&to, "to", "", "Where the trip ends")
	return cmd
}

// PrintOutcome writes a capture outcome, labelled with source.
func PrintOutcome(w io.Writer, source string, o app.CaptureOutcome) {
	if o.Detection == nil {
		reason := o.Reason
		if len(o.Candidates) > 0 {
			reason += " (read: " + strings.Join(o.Candidates, ", ") + ")"
		}
		fmt.Fprintf(w, "%s: %s\n", source, reason)
		return
	}

	d := o.Detection
	switch {
	case d.Bus != nil:
		fmt.Fprintf(w, "%s: %s\n", source, d.Plate)
		lookup.PrintBus(w, d.Bus)
	default:
		fmt.Fprintf(w, "%s: %s is not a known bus\n", source, d.Plate)
	}
	if d.Verdict != nil {
		lookup.PrintVerdict(w, *d.Verdict)
	}
}
