// Copyright (c) 2025, The calory-counter Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/calory-counter/catalog/pkg/catalog"
	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/server"
)

// ServerCommand returns the catalogd root command.
func ServerCommand() *cli.Command {
	return &cli.Command{
		Name:      serverName,
		Usage:     "Serve the food catalog over TCP",
		Version:   versionString(),
		ArgsUsage: "[port]",
		Description: `Loads the catalog, serves SEARCH and FOOD requests until interrupted,
then saves the catalog sorted by name.

Files ending in .db, .sqlite or .sqlite3 are opened as SQLite databases;
any other file is read as one comma-separated record per line.

Configuration is applied in order: defaults, environment (PORT,
CATALOG_FILE, METRICS_PORT, SHUTDOWN_TIMEOUT_SECONDS), --config file,
the positional port, then flags.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML or TOML configuration file",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "Listen address (default: all interfaces)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Catalog file (default: calories.csv)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of connection workers",
			},
			&cli.IntFlag{
				Name:  "queue-size",
				Usage: "Connections that may wait for a worker",
			},
			&cli.DurationFlag{
				Name:  "queue-timeout",
				Usage: "How long a new connection may wait for a queue slot",
			},
			&cli.DurationFlag{
				Name:  "read-timeout",
				Usage: "Per-read deadline on client connections",
			},
			&cli.DurationFlag{
				Name:  "accept-timeout",
				Usage: "Accept poll interval",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Metrics endpoint shutdown grace period",
			},
			&cli.IntFlag{
				Name:  "metrics-port",
				Usage: "Port for /metrics, /health and /ready (0 disables)",
			},
			logLevelFlag(),
		},
		Before: initLogger(serverName),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := serverConfigFromCmd(cmd)
			if err != nil {
				return err
			}
			return runServer(ctx, cfg, slog.Default())
		},
	}
}

// serverConfigFromCmd layers the config file, positional port and flags
// over the environment-aware defaults.
func serverConfigFromCmd(cmd *cli.Command) (*server.Config, error) {
	cfg := server.NewConfig()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = server.LoadConfigFile(path); err != nil {
			return nil, err
		}
	}

	if cmd.Args().Len() > 1 {
		return nil, cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "too many arguments",
			map[string]any{"args": cmd.Args().Slice()})
	}
	if arg := cmd.Args().First(); arg != "" {
		port, err := strconv.Atoi(arg)
		if err != nil {
			return nil, cerrors.WrapWithContext(cerrors.ErrCodeInvalidRequest, "invalid port",
				err, map[string]any{"port": arg})
		}
		cfg.Port = port
	}

	if cmd.IsSet("address") {
		cfg.Address = cmd.String("address")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("file") {
		cfg.CatalogFile = cmd.String("file")
	}
	if cmd.IsSet("workers") {
		cfg.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("queue-size") {
		cfg.QueueCapacity = cmd.Int("queue-size")
	}
	if cmd.IsSet("queue-timeout") {
		cfg.QueueTimeout = cmd.Duration("queue-timeout")
	}
	if cmd.IsSet("read-timeout") {
		cfg.ReadTimeout = cmd.Duration("read-timeout")
	}
	if cmd.IsSet("accept-timeout") {
		cfg.AcceptTimeout = cmd.Duration("accept-timeout")
	}
	if cmd.IsSet("shutdown-timeout") {
		cfg.ShutdownTimeout = cmd.Duration("shutdown-timeout")
	}
	if cmd.IsSet("metrics-port") {
		cfg.MetricsPort = cmd.Int("metrics-port")
	}

	cfg.Name = serverName
	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServer loads the catalog, serves it until ctx ends and saves it.
func runServer(ctx context.Context, cfg *server.Config, logger *slog.Logger) (err error) {
	store, err := catalog.OpenStore(cfg.CatalogFile, logger)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}()
	}

	cat := catalog.New(store, logger)
	if err := cat.Load(); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	srv, err := server.New(cat,
		server.WithConfig(cfg),
		server.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	runErr := srv.Run(ctx)

	if err := cat.Persist(); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to save catalog: %w", err))
	}
	return runErr
}
