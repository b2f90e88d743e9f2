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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/calory-counter/catalog/pkg/client"
	"github.com/calory-counter/catalog/pkg/defaults"
	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
	"github.com/calory-counter/catalog/pkg/serializer"
)

const quitCommand = "q"

// foodTable renders search results as columns.
type foodTable []food.Food

func (t foodTable) Header() []string {
	return []string{"NAME", "MEASURE", "WEIGHT(G)", "KCAL", "FAT(G)", "CARBO(G)", "PROTEIN(G)"}
}

func (t foodTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, f := range t {
		rows = append(rows, []string{
			f.Name,
			f.Measure,
			food.FormatValue(f.Weight),
			food.FormatValue(f.Kcal),
			food.FormatValue(f.Fat),
			food.FormatValue(f.Carbo),
			food.FormatValue(f.Protein),
		})
	}
	return rows
}

// ClientCommand returns the catalog root command.
func ClientCommand() *cli.Command {
	return &cli.Command{
		Name:      clientName,
		Usage:     "Search and extend a food catalog server",
		Version:   versionString(),
		ArgsUsage: "[host] [port]",
		Description: `With no subcommand, starts a session: every line read is a search and
'q' quits. A single argument is the port; two are host and port.

The connection is retried every --retry-delay until the server accepts.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Value: client.DefaultHost,
				Usage: "Server host",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   defaults.ServerPort,
				Usage:   "Server port",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Value: defaults.ClientRetryDelay,
				Usage: "Pause between failed connection attempts",
			},
			&cli.DurationFlag{
				Name:  "connect-timeout",
				Value: defaults.ClientConnectTimeout,
				Usage: "Timeout for a single connection attempt",
			},
			&cli.DurationFlag{
				Name:  "read-timeout",
				Value: defaults.ClientReadTimeout,
				Usage: "How long to wait for each reply frame",
			},
			formatFlag(),
			logLevelFlag(),
		},
		Before: initLogger(clientName),
		Commands: []*cli.Command{
			searchCmd(),
			addCmd(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			host, port, err := hostPortFromArgs(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			c := newClient(cmd, host, port)
			defer c.Close()

			s := &session{
				client: c,
				in:     cmd.Root().Reader,
				out:    cmd.Root().Writer,
				format: format,
			}
			return s.run(ctx)
		},
	}
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog once and print the matches",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if query == "" {
				return cerrors.New(cerrors.ErrCodeInvalidRequest, "search query is required")
			}
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			c := newClient(cmd, cmd.String("host"), cmd.Int("port"))
			if err := c.Connect(ctx); err != nil {
				return err
			}
			defer c.Close()

			results, err := c.Search(ctx, query)
			if err != nil {
				return err
			}

			w := writerFor(cmd, format)
			defer func() {
				if closeErr := w.Close(); closeErr != nil {
					slog.Warn("failed to close output", "error", closeErr)
				}
			}()
			return w.Serialize(ctx, foodTable(results))
		},
	}
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add records to the catalog",
		Description: `Adds one record described by flags, or every record in a YAML or JSON
file given with --from. Nutrient values left out are stored as unknown.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Food name (may contain commas)",
			},
			&cli.StringFlag{
				Name:  "measure",
				Usage: "Serving measure, e.g. cup or piece",
			},
			&cli.IntFlag{Name: "weight", Value: food.Unset, Usage: "Weight in grams"},
			&cli.IntFlag{Name: "kcal", Value: food.Unset, Usage: "Energy in kCal"},
			&cli.IntFlag{Name: "fat", Value: food.Unset, Usage: "Fat in grams"},
			&cli.IntFlag{Name: "carbo", Value: food.Unset, Usage: "Carbohydrates in grams"},
			&cli.IntFlag{Name: "protein", Value: food.Unset, Usage: "Protein in grams"},
			&cli.StringFlag{
				Name:  "from",
				Usage: "YAML or JSON file holding a list of records",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			records, err := recordsFromCmd(cmd)
			if err != nil {
				return err
			}

			c := newClient(cmd, cmd.String("host"), cmd.Int("port"))
			if err := c.Connect(ctx); err != nil {
				return err
			}
			defer c.Close()

			for _, record := range records {
				if err := c.Add(ctx, record); err != nil {
					return fmt.Errorf("failed to add %q: %w", record.Name, err)
				}
			}
			fmt.Fprintf(cmd.Root().Writer, "Sent %d record(s) to server\n", len(records))
			return nil
		},
	}
}

func recordsFromCmd(cmd *cli.Command) ([]food.Food, error) {
	if path := cmd.String("from"); path != "" {
		records, err := serializer.FromFile[[]food.Food](path)
		if err != nil {
			return nil, cerrors.WrapWithContext(cerrors.ErrCodeInvalidRequest, "failed to read records",
				err, map[string]any{"path": path})
		}
		for _, r := range *records {
			if err := r.Validate(); err != nil {
				return nil, err
			}
		}
		return *records, nil
	}

	name := cmd.String("name")
	measure := cmd.String("measure")
	if name == "" || measure == "" {
		return nil, cerrors.New(cerrors.ErrCodeInvalidRequest, "--name and --measure are required without --from")
	}

	record := food.New(name, measure)
	record.Weight = cmd.Int("weight")
	record.Kcal = cmd.Int("kcal")
	record.Fat = cmd.Int("fat")
	record.Carbo = cmd.Int("carbo")
	record.Protein = cmd.Int("protein")
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return []food.Food{record}, nil
}

// hostPortFromArgs applies the positional [host] [port] arguments over the
// --host and --port flags. A single argument is the port.
func hostPortFromArgs(cmd *cli.Command) (string, int, error) {
	host := cmd.String("host")
	port := cmd.Int("port")

	args := cmd.Args().Slice()
	var portArg string
	switch len(args) {
	case 0:
		return host, port, nil
	case 1:
		portArg = args[0]
	case 2:
		host, portArg = args[0], args[1]
	default:
		return "", 0, cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "too many arguments",
			map[string]any{"args": args})
	}

	p, err := strconv.Atoi(portArg)
	if err != nil || p <= 0 || p > 65535 {
		return "", 0, cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "invalid port",
			map[string]any{"port": portArg})
	}
	return host, p, nil
}

func newClient(cmd *cli.Command, host string, port int) *client.Client {
	return client.New(
		client.WithHost(host),
		client.WithPort(port),
		client.WithRetryDelay(cmd.Duration("retry-delay")),
		client.WithConnectTimeout(cmd.Duration("connect-timeout")),
		client.WithReadTimeout(cmd.Duration("read-timeout")),
		client.WithLogger(slog.Default()),
	)
}

func writerFor(cmd *cli.Command, format serializer.Format) *serializer.Writer {
	if path := cmd.String(outputFlagName); path != "" {
		return serializer.NewFileWriterOrStdout(format, path)
	}
	return serializer.NewWriter(format, cmd.Root().Writer)
}

// session is the line-oriented search loop.
type session struct {
	client *client.Client
	in     io.Reader
	out    io.Writer
	format serializer.Format
}

func (s *session) run(ctx context.Context) error {
	if s.in == nil {
		s.in = os.Stdin
	}
	if s.out == nil {
		s.out = os.Stdout
	}

	if err := s.client.Connect(ctx); err != nil {
		return err
	}

	lines := bufio.NewScanner(s.in)
	lines.Buffer(make([]byte, 0, 4096), 4096)
	w := serializer.NewWriter(s.format, s.out)

	for {
		fmt.Fprint(s.out, "Enter the food name to search or 'q' to quit:\n> ")
		if !lines.Scan() {
			fmt.Fprintln(s.out)
			return lines.Err()
		}

		query := strings.TrimRight(lines.Text(), "\r")
		switch {
		case query == quitCommand:
			fmt.Fprintln(s.out, "quit application")
			return nil
		case strings.TrimSpace(query) == "":
			continue
		}

		if err := s.search(ctx, w, query); err != nil {
			return err
		}
	}
}

// search runs one query. Failures are reported to the user; only a failed
// reconnect ends the session.
func (s *session) search(ctx context.Context, w *serializer.Writer, query string) error {
	results, err := s.client.Search(ctx, query)
	if err != nil {
		fmt.Fprintf(s.out, "Search failed: %v\n", err)
		if errors.Is(err, client.ErrNotConnected) || !s.client.Connected() {
			fmt.Fprintln(s.out, "Reconnecting...")
			return s.client.Connect(ctx)
		}
		if len(results) == 0 {
			return nil
		}
	}

	switch len(results) {
	case 0:
		fmt.Fprintf(s.out, "\nNo items found matching %s\nPlease check your spelling and try again!\n\n", query)
		return nil
	case 1:
		fmt.Fprintf(s.out, "\nFound 1 item\n\n")
	default:
		fmt.Fprintf(s.out, "\nFound %d items\n\n", len(results))
	}

	if err := w.Serialize(ctx, foodTable(results)); err != nil {
		return err
	}
	fmt.Fprintln(s.out)
	return nil
}
