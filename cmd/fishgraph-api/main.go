// Package main provides the fishgraph API and CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fishgraph/fishgraph-api/internal/config"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/infrastructure/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "fishgraph-api",
		Short: "Fish knowledge graph API and question answering",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $FG_CONFIG)")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Println("Starting fishgraph API...")
			return server.New(cfg).Run(cmd.Context())
		},
	}
	rootCmd.RunE = serveCmd.RunE
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the knowledge graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(loadConfig, server.Build, func(ctx context.Context, app *server.App, args []string, out io.Writer) error {
			resp, err := app.QA.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(out, resp)
		}),
	})

	var searchType string
	searchCmd := &cobra.Command{
		Use:   "search <keywords...>",
		Short: "Keyword search with one-hop expansion",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(loadConfig, server.BuildGraph, func(ctx context.Context, app *server.App, args []string, out io.Writer) error {
			g, err := app.Graph.Search(ctx, model.NewSearchQuery(strings.Join(args, " "), searchType))
			if err != nil {
				return err
			}
			return printJSON(out, g)
		}),
	}
	searchCmd.Flags().StringVar(&searchType, "type", "", "restrict to one category (Fish, Family, Genus, Order, Region)")
	rootCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "node <id>",
		Short: "Show a node and its neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(loadConfig, server.BuildGraph, func(ctx context.Context, app *server.App, args []string, out io.Writer) error {
			g, err := app.Graph.NodeWithRelations(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(out, g)
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Count nodes per category and relationships per type",
		Args:  cobra.NoArgs,
		RunE: withApp(loadConfig, server.BuildGraph, func(ctx context.Context, app *server.App, _ []string, out io.Writer) error {
			stats, err := app.Graph.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(out, stats)
		}),
	})

	return rootCmd
}

type (
	appFunc   func(ctx context.Context, app *server.App, args []string, out io.Writer) error
	buildFunc func(ctx context.Context, cfg *config.Config) (*server.App, error)
)

// withApp builds the dependency graph for a one-shot command and tears it down afterwards.
func withApp(load func() (*config.Config, error), build buildFunc, fn appFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		app, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close(context.WithoutCancel(ctx))
		return fn(ctx, app, args, cmd.OutOrStdout())
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
