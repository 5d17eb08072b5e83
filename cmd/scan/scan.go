package scan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blinkbus/blink-go/cmd/capture"
	"github.com/blinkbus/blink-go/cmd/lookup"
	"github.com/blinkbus/blink-go/internal/app"
	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/camera"
	"github.com/blinkbus/blink-go/internal/errors"
)

// Command creates the scan command, which scans the camera continuously and
// captures on demand.
func Command(ctx *bootstrap.Context) *cobra.Command {
	var from, to string
	var images []string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan bus plates from the camera",
		Long: "Recognize plates continuously from the camera. Press Enter to capture a single high resolution frame, " +
			"type a plate to enter it by hand, or q to quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var source camera.Source
			if len(images) > 0 {
				fs, err := camera.NewFileSource(interval, images...)
				if err != nil {
					return err
				}
				source = fs
			}
			return run(cmd.Context(), ctx, source, app.Trip{From: from, To: to}, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Where the trip starts")
	cmd.Flags().StringVar(&to, "to", "", "Where the trip ends")
	cmd.Flags().StringSliceVar(&images, "images", nil, "Scan image files or directories instead of the camera")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Delay between images with --images")
	return cmd
}

func run(parent context.Context, bctx *bootstrap.Context, source camera.Source, trip app.Trip, in io.Reader, out io.Writer) error {
	if _, err := bctx.EnsureMetrics(); err != nil {
		return err
	}

	sc, err := bctx.NewScanner(source)
	if err != nil {
		return err
	}
	defer func() { _ = sc.Close() }()

	store, err := bctx.OpenCatalog(parent)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pub, err := bctx.ConnectPublisher(parent)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	svc := bctx.NewService(sc.Controller, store, pub)
	defer svc.Close()
	svc.SetTrip(trip)

	detections, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error {
		err := sc.Run(ctx, sc.ROI)
		if err == nil && source != nil {
			fmt.Fprintln(out, "No more images")
		}
		return err
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case d, ok := <-detections:
				if !ok {
					return nil
				}
				printDetection(out, d)
			}
		}
	})
	g.Go(func() error {
		defer cancel()
		return readCommands(ctx, svc, in, out)
	})

	fmt.Fprintln(out, "Scanning. Enter: capture, <plate>: manual entry, q: quit")
	return g.Wait()
}

// readCommands handles one line of input at a time until q or end of input.
func readCommands(ctx context.Context, svc *app.Service, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(in)
		for s.Scan() {
			select {
			case lines <- strings.TrimSpace(s.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		switch strings.ToLower(line) {
		case "q", "quit", "exit":
			return nil
		case "":
			outcome, err := svc.Capture(ctx)
			if err != nil {
				fmt.Fprintf(out, "capture failed: %v\n", err)
				continue
			}
			// successful captures arrive as detections
			if outcome.Detection == nil {
				capture.PrintOutcome(out, "capture", outcome)
			}
		default:
			if _, err := svc.SubmitManualPlate(ctx, line); err != nil {
				if errors.IsCategory(err, errors.CategoryValidation) {
					fmt.Fprintf(out, "%q is not a plate\n", line)
					continue
				}
				return err
			}
		}
	}
}

func printDetection(w io.Writer, d app.Detection) {
	when := d.Time.Local().Format("15:04:05")
	if d.Bus == nil {
		fmt.Fprintf(w, "[%s] %s (%s): unknown bus\n", when, d.Plate, d.Mode)
		return
	}
	fmt.Fprintf(w, "[%s] %s (%s)\n", when, d.Plate, d.Mode)
	lookup.PrintBus(w, d.Bus)
	if d.Verdict != nil {
		lookup.PrintVerdict(w, *d.Verdict)
	}
}
