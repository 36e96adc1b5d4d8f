// Command hhhctl administers the HERO/HUB/HELP classifier from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/app"
)

var (
	// Global flags
	output  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "hhhctl",
	Short: "HERO/HUB/HELP classification admin CLI",
	Long: `hhhctl classifies competitor videos and playlists, records human
decisions and maintains the pattern store.

Targets are written type:id, for example video:42 or playlist:7.

Database, Redis and embedding settings come from the same environment
variables as the server (DATABASE_URL, REDIS_URL, EMBEDDING_URL, ...).`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "json", "Output format (json, yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

func newLogger() zerolog.Logger {
	lvl := zerolog.WarnLevel
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().
		Timestamp().Str("service", "hhhctl").Logger()
}

// withApp builds the service graph, runs fn and tears everything down.
// SIGINT and SIGTERM cancel the context passed to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	cfg, err := app.LoadConfig(logger)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// render prints v in the selected output format.
func render(w io.Writer, v any) error {
	switch output {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toPlain(v)); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (json, yaml)", output)
}

// toPlain round-trips v through JSON so YAML output uses the API field
// names.
func toPlain(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
