package mqtttest

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/blinkbus/blink-go/internal/bootstrap"
	"github.com/blinkbus/blink-go/internal/mqtt"
)

// Command creates the mqtt-test command, which checks the broker connection
// stage by stage.
func Command(ctx *bootstrap.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "mqtt-test",
		Short: "Test the MQTT broker connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := ctx.Settings.MQTT
			if settings.ClientID == "" {
				settings.ClientID = "blink-test-" + ctx.Build.GetSystemID()
			}
			cfg := mqtt.ConfigFromSettings(&settings)
			client, err := mqtt.NewClient(cfg)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			results := mqtt.Diagnose(cmd.Context(), cfg, client, &net.Dialer{Timeout: 10 * time.Second})

			out := cmd.OutOrStdout()
			for _, r := range results {
				status := "ok"
				if !r.Success {
					status = "FAILED: " + r.Error
				}
				fmt.Fprintf(out, "%-16s %-8s %s\n", r.Stage, r.Elapsed.Round(time.Millisecond), status)
			}
			if last := results[len(results)-1]; !last.Success {
				return fmt.Errorf("MQTT test failed at %s", last.Stage)
			}
			return nil
		},
	}
}
