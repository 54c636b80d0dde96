package cli

import (
	"context"
	"os"

	"github.com/gabapcia/hookrelay/internal/dispatch"
	"github.com/gabapcia/hookrelay/internal/handlers/httpapi"
	"github.com/gabapcia/hookrelay/internal/predreg"

	"github.com/urfave/cli/v3"
)

// Run initializes and executes the hookrelay CLI application.
//
// It registers all available commands:
//
//   - `serve`: starts the inbound push endpoint and the dispatch engine.
//   - `register-predicate`: registers a predicate with the chain indexer.
//   - `deregister-predicate`: removes a previously registered predicate.
//
// Parameters:
//   - ctx: context controlling the CLI application's lifecycle.
//   - pr: the predicate registration service used by the predicate commands.
//   - dp: the dispatch engine used by the serve command.
//   - srv: the inbound HTTP server used by the serve command.
func Run(ctx context.Context, pr predreg.Service, dp dispatch.Service, srv *httpapi.Server) error {
	app := &cli.Command{
		EnableShellCompletion: true,
		Name:                  "hookrelay",
		Description:           "Command-line interface for running the hookrelay ingestion service and managing predicates.",
		Usage:                 "hookrelay [command] [flags]",
		Commands: []*cli.Command{
			serveCommand(dp, srv),
			registerPredicateCommand(pr),
			deregisterPredicateCommand(pr),
		},
	}

	return app.Run(ctx, os.Args)
}
