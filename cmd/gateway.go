package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shotbox/shotbox/pkg/broker"
	"github.com/shotbox/shotbox/pkg/gateway"
)

var (
	hostFlag string
	portFlag int

	gatewayCmd = &cobra.Command{
		Use:   "gateway",
		Short: "Serve the JSON-RPC gateway",
		Long:  longGateway,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if hostFlag != "" {
				settings.Host = hostFlag
			}
			if portFlag != 0 {
				settings.Port = portFlag
			}

			b, err := broker.Connect(ctx, settings.BrokerOptions())
			if err != nil {
				return err
			}
			defer b.Close()

			gw := gateway.New(b, settings.ScreenshotDefaults())

			srv := &http.Server{
				Addr:    settings.ListenAddr(),
				Handler: gw.Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("gateway listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down gateway")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			log.Info("gateway stopped")
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(gatewayCmd)

	gatewayCmd.Flags().StringVarP(&hostFlag, "host", "H", "", "bind address (overrides HOST)")
	gatewayCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "bind port (overrides PORT)")
}

var longGateway = `
Serve the stateless JSON-RPC front.

Endpoints:
  POST /rpc  JSON-RPC 2.0 (ping, get_methods, screenshot, get_job_status)
  GET  /     health probe
`
