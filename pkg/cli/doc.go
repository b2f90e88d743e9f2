// Package cli implements the command-line interfaces for the food catalog:
// the catalogd server and the catalog client.
//
// # Server
//
//	catalogd [port] [--config FILE] [--file calories.csv] [--workers 10]
//
// Loads the catalog file, serves SEARCH and FOOD frames on the port
// (default 12345) until SIGINT or SIGTERM, then writes the catalog back
// sorted by name. Files ending in .db, .sqlite or .sqlite3 are SQLite
// databases; any other path is a comma-separated text file with one record
// per line.
//
// Settings are layered: built-in defaults, then the PORT, CATALOG_FILE,
// METRICS_PORT and SHUTDOWN_TIMEOUT_SECONDS environment variables, then a
// YAML or TOML --config file, then the positional port, then flags.
//
// # Client
//
//	catalog [host] [port]
//	catalog search QUERY [--output FILE]
//	catalog add --name NAME --measure MEASURE [--kcal N ...]
//	catalog add --from records.yaml
//
// Without a subcommand the client reads one query per line from stdin and
// prints the matches until it reads 'q' or EOF. A single positional
// argument is the port. Connection attempts are retried every
// --retry-delay until the server accepts.
//
// # Global Flags
//
//	--format, -t   Output format: table, json, yaml (default: table)
//	--log-level    debug, info, warn or error (env: LOG_LEVEL)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Usage Examples
//
// Serve a SQLite catalog with metrics on port 9090:
//
//	catalogd --file catalog.db --metrics-port 9090
//
// Look up every whole-milk variant as JSON:
//
//	catalog --format json search "Milk,"
//
// Version information is injected at build time via ldflags:
//
//	go build -ldflags="-X 'github.com/calory-counter/catalog/pkg/cli.version=1.0.0'"
package cli
