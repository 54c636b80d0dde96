package cli

import (
	"context"
	"fmt"

	"github.com/gabapcia/hookrelay/internal/predreg"

	"github.com/urfave/cli/v3"
)

// registerPredicateCommand returns the CLI command that registers a predicate
// against the external chain-indexing service.
//
// Usage example:
//
//	hookrelay register-predicate \
//	    --subscription dex-swap/amm-pool-v2 \
//	    --network mainnet \
//	    --match-rule 'contract_call:amm-pool-v2' \
//	    --callback-url https://hooks.example.com/chainhook/events
func registerPredicateCommand(pr predreg.Service) *cli.Command {
	return &cli.Command{
		Name:        "register-predicate",
		Description: "Register a predicate so the chain indexer starts pushing matching event batches.",
		Usage:       "Registers a predicate. Prints the UUID the registry filed it under.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "uuid",
				Usage: "Predicate UUID (generated when omitted)",
			},
			&cli.StringFlag{
				Name:     "subscription",
				Usage:    "Subscription identifier deliveries will carry",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "network",
				Usage:    "Chain scope (e.g. mainnet, testnet)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "match-rule",
				Usage:    "Indexer-specific match expression",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "callback-url",
				Usage:    "URL the indexer pushes matching batches to",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			predicateUUID, err := pr.Register(ctx,
				c.String("uuid"),
				c.String("subscription"),
				c.String("network"),
				c.String("match-rule"),
				c.String("callback-url"),
			)
			if err != nil {
				return err
			}

			fmt.Println(predicateUUID)
			return nil
		},
	}
}

// deregisterPredicateCommand returns the CLI command that removes a
// registered predicate.
//
// Usage example:
//
//	hookrelay deregister-predicate --uuid 6f1b0f3a-...
func deregisterPredicateCommand(pr predreg.Service) *cli.Command {
	return &cli.Command{
		Name:        "deregister-predicate",
		Description: "Deregister a predicate so the chain indexer stops pushing its batches.",
		Usage:       "Removes a predicate by UUID.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "uuid",
				Usage:    "UUID of the predicate to remove",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return pr.Deregister(ctx, c.String("uuid"))
		},
	}
}
