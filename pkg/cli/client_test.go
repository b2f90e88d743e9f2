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
	"bytes"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/calory-counter/catalog/pkg/catalog"
	"github.com/calory-counter/catalog/pkg/client"
	"github.com/calory-counter/catalog/pkg/defaults"
	"github.com/calory-counter/catalog/pkg/food"
	"github.com/calory-counter/catalog/pkg/serializer"
	"github.com/calory-counter/catalog/pkg/server"
)

var (
	wholeMilk = food.Food{Name: "Milk,Whole,3.3% Fat", Measure: "cup", Weight: 244, Kcal: 150, Fat: 8, Carbo: 11, Protein: 8}
	chocolate = food.Food{Name: "Milk Chocolate", Measure: "bar", Weight: 44, Kcal: 235, Fat: 13, Carbo: 26, Protein: 3}
)

// startCatalogServer serves records on a loopback ephemeral port and
// returns the catalog and the bound port.
func startCatalogServer(t *testing.T, records ...food.Food) (*catalog.Catalog, int) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	cat := catalog.New(catalog.NewMemoryStore(records...), logger)
	require.NoError(t, cat.Load())

	cfg := server.NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.Workers = 2
	cfg.MetricsPort = 0
	cfg.AcceptTimeout = 100 * time.Millisecond
	cfg.ReadTimeout = 200 * time.Millisecond

	srv, err := server.New(cat, server.WithConfig(cfg), server.WithLogger(logger))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(t.Context())
	}()
	t.Cleanup(func() {
		srv.Shutdown()
		<-done
	})

	select {
	case <-srv.Bound():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not bind")
	}
	return cat, srv.Addr().(*net.TCPAddr).Port
}

func testClient(port int) *client.Client {
	return client.New(
		client.WithHost("127.0.0.1"),
		client.WithPort(port),
		client.WithRetryDelay(50*time.Millisecond),
		client.WithReadTimeout(2*time.Second),
		client.WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func TestHostPortFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{
			name:     "defaults",
			args:     []string{"test"},
			wantHost: client.DefaultHost,
			wantPort: defaults.ServerPort,
		},
		{
			name:     "flags",
			args:     []string{"test", "--host", "example.com", "--port", "8080"},
			wantHost: "example.com",
			wantPort: 8080,
		},
		{
			name:     "single argument is the port",
			args:     []string{"test", "9000"},
			wantHost: client.DefaultHost,
			wantPort: 9000,
		},
		{
			name:     "host and port",
			args:     []string{"test", "10.0.0.5", "9001"},
			wantHost: "10.0.0.5",
			wantPort: 9001,
		},
		{
			name:    "non numeric port",
			args:    []string{"test", "localhost"},
			wantErr: true,
		},
		{
			name:    "port out of range",
			args:    []string{"test", "70000"},
			wantErr: true,
		},
		{
			name:    "too many arguments",
			args:    []string{"test", "a", "1", "2"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotHost string
			var gotPort int
			var capturedErr error
			testCmd := &cli.Command{
				Name: "test",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Value: client.DefaultHost},
					&cli.IntFlag{Name: "port", Value: defaults.ServerPort},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					gotHost, gotPort, capturedErr = hostPortFromArgs(cmd)
					return capturedErr
				},
			}

			err := testCmd.Run(context.Background(), tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, gotHost)
			assert.Equal(t, tt.wantPort, gotPort)
		})
	}
}

func TestRecordsFromCmd(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "records.yaml")
	require.NoError(t, os.WriteFile(listPath, []byte(`- name: Apple
  measure: piece
  weight: 150
  kcal: 95
  fat: 0
  carbo: 25
  protein: 0
- name: Water
  measure: glass
  weight: -1
  kcal: 0
  fat: 0
  carbo: 0
  protein: 0
`), 0o600))

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("- name: Bad\n  measure: cup,large\n"), 0o600))

	tests := []struct {
		name    string
		args    []string
		want    []food.Food
		wantErr bool
	}{
		{
			name: "flags with unset nutrients",
			args: []string{"test", "--name", "Oats,Rolled", "--measure", "cup", "--kcal", "300"},
			want: []food.Food{func() food.Food {
				f := food.New("Oats,Rolled", "cup")
				f.Kcal = 300
				return f
			}()},
		},
		{
			name: "from file",
			args: []string{"test", "--from", listPath},
			want: []food.Food{
				{Name: "Apple", Measure: "piece", Weight: 150, Kcal: 95, Fat: 0, Carbo: 25, Protein: 0},
				{Name: "Water", Measure: "glass", Weight: food.Unset, Kcal: 0, Fat: 0, Carbo: 0, Protein: 0},
			},
		},
		{
			name:    "missing measure",
			args:    []string{"test", "--name", "Apple"},
			wantErr: true,
		},
		{
			name:    "invalid nutrient",
			args:    []string{"test", "--name", "Apple", "--measure", "piece", "--fat=-5"},
			wantErr: true,
		},
		{
			name:    "invalid record in file",
			args:    []string{"test", "--from", badPath},
			wantErr: true,
		},
		{
			name:    "missing file",
			args:    []string{"test", "--from", filepath.Join(dir, "nope.yaml")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured []food.Food
			var capturedErr error
			testCmd := &cli.Command{
				Name:  "test",
				Flags: addCmd().Flags,
				Action: func(_ context.Context, cmd *cli.Command) error {
					captured, capturedErr = recordsFromCmd(cmd)
					return capturedErr
				},
			}

			err := testCmd.Run(context.Background(), tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, captured)
		})
	}
}

func TestFoodTable(t *testing.T) {
	table := foodTable{wholeMilk, food.New("Tea", "cup")}

	assert.Len(t, table.Header(), 7)
	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Milk,Whole,3.3% Fat", "cup", "244", "150", "8", "11", "8"}, rows[0])
	assert.Equal(t, []string{"Tea", "cup", "n/a", "n/a", "n/a", "n/a", "n/a"}, rows[1])
}

func TestSessionRun(t *testing.T) {
	_, port := startCatalogServer(t, wholeMilk, chocolate)

	c := testClient(port)
	defer c.Close()

	var out bytes.Buffer
	s := &session{
		client: c,
		in:     strings.NewReader("Milk\n\nCheese\nq\nMilk\n"),
		out:    &out,
		format: serializer.FormatTable,
	}
	require.NoError(t, s.run(t.Context()))

	got := out.String()
	assert.Contains(t, got, "Enter the food name to search or 'q' to quit:")
	assert.Contains(t, got, "Found 1 item")
	assert.Contains(t, got, "Milk,Whole,3.3% Fat")
	assert.NotContains(t, got, "Milk Chocolate")
	assert.Contains(t, got, "No items found matching Cheese")
	assert.Contains(t, got, "quit application")
	// input after q is never searched
	assert.Equal(t, 1, strings.Count(got, "Found 1 item"))
}

func TestSessionRunEndsAtEOF(t *testing.T) {
	_, port := startCatalogServer(t, wholeMilk, chocolate)

	c := testClient(port)
	defer c.Close()

	var out bytes.Buffer
	s := &session{
		client: c,
		in:     strings.NewReader("milk chocolate"),
		out:    &out,
		format: serializer.FormatJSON,
	}
	require.NoError(t, s.run(t.Context()))
	assert.Contains(t, out.String(), `"name": "Milk Chocolate"`)
	assert.NotContains(t, out.String(), "quit application")
}

func TestClientCommandSearchAndAdd(t *testing.T) {
	cat, port := startCatalogServer(t, wholeMilk)
	portArg := strconv.Itoa(port)

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := ClientCommand()
		cmd.Writer = &out
		base := []string{clientName, "--host", "127.0.0.1", "--port", portArg, "--log-level", "error", "--retry-delay", "50ms"}
		require.NoError(t, cmd.Run(t.Context(), append(base, args...)))
		return out.String()
	}

	out := run("add", "--name", "Milk,Skim", "--measure", "cup", "--kcal", "85")
	assert.Contains(t, out, "Sent 1 record(s) to server")

	// the server appends after reading the frame, not before the client exits
	require.Eventually(t, func() bool {
		return cat.Len() == 2
	}, 5*time.Second, 20*time.Millisecond)

	out = run("--format", "yaml", "search", "Milk,")
	assert.Contains(t, out, "name: Milk,Whole,3.3% Fat")
	assert.Contains(t, out, "name: Milk,Skim")
	assert.Contains(t, out, "protein: -1")
}

func TestClientCommand_CommandStructure(t *testing.T) {
	cmd := ClientCommand()

	if cmd.Name != clientName {
		t.Errorf("Name = %v, want %v", cmd.Name, clientName)
	}
	if cmd.Usage == "" {
		t.Error("Usage should not be empty")
	}
	if cmd.Description == "" {
		t.Error("Description should not be empty")
	}
	requireFlags(t, cmd.Flags, "host", "port", "retry-delay", "connect-timeout", "read-timeout", "format", "log-level")

	names := make([]string, 0, len(cmd.Commands))
	for _, sub := range cmd.Commands {
		names = append(names, sub.Name)
		if sub.Action == nil {
			t.Errorf("subcommand %q has no Action", sub.Name)
		}
	}
	assert.ElementsMatch(t, []string{"search", "add"}, names)

	requireFlags(t, searchCmd().Flags, "output")
	requireFlags(t, addCmd().Flags, "name", "measure", "weight", "kcal", "fat", "carbo", "protein", "from")
}
