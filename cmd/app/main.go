// Package main provides the entry point for the gateway with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tollgate-io/tollgate/cmd/app/commands"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "tollgate",
		Usage:   "Capability-gated access gateway",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "gateway",
				Usage: "Start the gateway HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGateway(ctx, version)
				},
			},
			{
				Name:  "create-signer-key",
				Usage: "Generate and wrap a new gateway signing key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "key-uri",
						Aliases:  []string{"k"},
						Required: true,
						Usage:    "Secrets keeper URI used to wrap the key (e.g., hashivault://transit-key)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateSignerKey(
						ctx,
						commands.DefaultIO(),
						cmd.String("key-uri"),
						cmd.String("format"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
