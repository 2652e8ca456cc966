package cmd

import (
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shotbox/shotbox/pkg/broker"
	"github.com/shotbox/shotbox/pkg/render"
	"github.com/shotbox/shotbox/pkg/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a browser worker consuming the task queue",
	Long:  longWorker,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		b, err := broker.Connect(ctx, settings.BrokerOptions())
		if err != nil {
			return err
		}
		defer b.Close()

		svc := render.New(settings.RenderConfig())
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := svc.Stop(); err != nil {
				log.Error("browser shutdown failed", "err", err)
			}
		}()

		w := worker.New(b, svc, settings.ScreenshotDefaults())
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

var longWorker = `
Run a stateful browser worker.

The worker blocks on the Redis task queue, renders each job in an isolated
browser context and publishes status and result through the broker. Any
number of workers may consume the same queue. SIGINT/SIGTERM stop the loop
after the current task.
`
