package serve

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blinkbus/blink-go/internal/api"
	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/scanner"
)

// Command creates the serve command, which runs the scanner behind the HTTP API.
func Command(ctx *bootstrap.Context) *cobra.Command {
	var noCamera bool
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scanner and HTTP API",
		Long:  "Scan the camera continuously and serve detections, captures, routes and history over HTTP.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				ctx.Settings.WebServer.Port = port
			}
			return run(cmd.Context(), ctx, !noCamera)
		},
	}

	cmd.Flags().BoolVar(&noCamera, "no-camera", false, "Serve catalog and manual entry only")
	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP port (overrides webserver.port)")
	return cmd
}

func run(parent context.Context, bctx *bootstrap.Context, withCamera bool) error {
	log := logger.Global().Module("serve")

	metrics, err := bctx.EnsureMetrics()
	if err != nil {
		return err
	}

	store, err := bctx.OpenCatalog(parent)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var sc *bootstrap.Scanner
	var controller *scanner.Controller
	if withCamera {
		sc, err = bctx.NewScanner(nil)
		if err != nil {
			return err
		}
		defer func() { _ = sc.Close() }()
		controller = sc.Controller
	}

	pub, err := bctx.ConnectPublisher(parent)
	if err != nil {
		// detections still reach the API and history without a broker
		log.Warn("MQTT unavailable, publishing disabled", logger.Error(err))
		pub = nil
	}
	if pub != nil {
		defer pub.Close()
	}

	svc := bctx.NewService(controller, store, pub)
	defer svc.Close()

	opts := []api.ServerOption{
		api.WithMetrics(metrics),
		api.WithVersion(bctx.Build.GetVersion()),
	}
	geo, err := bctx.NewGeocoder()
	if err != nil {
		return err
	}
	if geo != nil {
		opts = append(opts, api.WithGeocoder(geo))
	}

	server, err := api.New(api.ConfigFromSettings(&bctx.Settings.WebServer), svc, opts...)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(parent)
	g.Go(func() error { return server.Run(ctx) })
	if sc != nil {
		g.Go(func() error { return svc.Run(ctx) })
		g.Go(func() error {
			if err := sc.Run(ctx, sc.ROI); err != nil {
				log.Error("scanner stopped, serving without camera", logger.Error(err))
			}
			<-ctx.Done()
			return nil
		})
	}

	log.Info("BLink started",
		logger.String("version", bctx.Build.GetVersion()),
		logger.Bool("camera", sc != nil),
		logger.Bool("mqtt", pub != nil))
	return g.Wait()
}
