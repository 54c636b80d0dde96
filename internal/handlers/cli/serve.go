package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabapcia/hookrelay/internal/dispatch"
	"github.com/gabapcia/hookrelay/internal/handlers/httpapi"

	"github.com/urfave/cli/v3"
)

// shutdownGracePeriod is how long in-flight batches get to finish once a
// termination signal arrives.
const shutdownGracePeriod = 30 * time.Second

// serveCommand returns the CLI command that runs the ingestion service: the
// dispatch engine's background monitor plus the inbound push endpoint.
//
// Usage example:
//
//	hookrelay serve
//
// The process runs until it receives SIGINT or SIGTERM.
func serveCommand(dp dispatch.Service, srv *httpapi.Server) *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Description: "Starts the ingestion service: inbound push endpoint, dispatch engine and anomaly monitor.",
		Usage:       "Runs the service until Ctrl+C or a termination signal, then shuts down gracefully.",
		Action: func(ctx context.Context, c *cli.Command) error {
			quit := make(chan os.Signal, 1)
			defer close(quit)

			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			if err := dp.Start(ctx); err != nil {
				return err
			}
			defer dp.Close()

			srv.Start(ctx)

			<-quit

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
			defer cancel()

			return srv.Close(shutdownCtx)
		},
	}
}
