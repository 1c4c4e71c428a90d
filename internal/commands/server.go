package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/tusk/internal"
	"github.com/starford/tusk/internal/apperr"
)

func serveCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only HTTP viewer with live updates",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port (overrides app.http.port)",
				Sources: cli.EnvVars("TUSK_HTTP_PORT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("port") {
				cfg.App.HTTP.Port = int(cmd.Int("port"))
				if err := cfg.App.Validate(); err != nil {
					return fmt.Errorf("%w: invalid --port: %v", apperr.ErrInvalidArgument, err)
				}
			}

			all := append([]internal.Option{internal.WithConfig(cfg)}, opts...)
			if err := internal.Run(ctx, all...); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand(opts []internal.Option) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the task tools over MCP on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.App.LogLevel,
			}))

			all := append([]internal.Option{internal.WithConfig(cfg), internal.WithLogger(logger)}, opts...)
			return internal.RunMCP(ctx, all...)
		},
	}
}
