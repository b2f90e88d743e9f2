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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/calory-counter/catalog/pkg/logging"
	"github.com/calory-counter/catalog/pkg/serializer"
)

const (
	serverName     = "catalogd"
	clientName     = "catalog"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

const (
	logLevelFlagName = "log-level"
	formatFlagName   = "format"
	outputFlagName   = "output"
)

// Flags are built per command tree since urfave/cli flags hold parse state.

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    logLevelFlagName,
		Value:   "info",
		Usage:   "Log level (debug, info, warn, error)",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    formatFlagName,
		Aliases: []string{"t"},
		Value:   string(serializer.FormatTable),
		Usage:   fmt.Sprintf("Output format (supported: %v)", serializer.SupportedFormats()),
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    outputFlagName,
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}
}

// ExecuteServer runs the catalogd command with os.Args.
func ExecuteServer() {
	execute(ServerCommand())
}

// ExecuteClient runs the catalog command with os.Args.
func ExecuteClient() {
	execute(ClientCommand())
}

func execute(cmd *cli.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

// initLogger configures slog after flags are parsed so --log-level takes
// effect before any action runs.
func initLogger(module string) cli.BeforeFunc {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		level := cmd.String(logLevelFlagName)
		logging.SetDefaultStructuredLoggerWithLevel(module, version, level)
		slog.Debug("starting",
			"name", module,
			"version", version,
			"commit", commit,
			"date", date,
			"logLevel", level)
		return ctx, nil
	}
}

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	return serializer.ParseFormat(cmd.String(formatFlagName))
}
