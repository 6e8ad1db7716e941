// Command synth generates synthetic structured records from a YAML schema
// file using an LLM backend for generated fields.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-synth/internal/engine"
	"github.com/ahrav/go-synth/internal/output"
	"github.com/ahrav/go-synth/internal/schemafile"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "synth",
		Short:         "Generate synthetic structured records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newGenerateCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	var (
		schemaPath string
		count      int
		provider   string
		model      string
		format     string
		seed       uint64
		outPath    string
		batchSize  int
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate records from a schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmtName, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			schema, err := schemafile.Load(schemaPath)
			if err != nil {
				return err
			}

			opts := engine.Options{
				Count:     count,
				Provider:  engine.ProviderSpec{Name: provider, Model: model},
				BatchSize: batchSize,
				OnProgress: func(done, total int) {
					fmt.Fprintf(os.Stderr, "\rgenerated %d/%d", done, total)
					if done == total {
						fmt.Fprintln(os.Stderr)
					}
				},
				DisableCache: noCache,
			}
			if cmd.Flags().Changed("seed") {
				opts.Seed = &seed
			}
			if model == "" {
				return fmt.Errorf("--model is required")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := engine.Generate(ctx, schema, opts)
			if err != nil {
				return err
			}

			var w *os.File = os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := output.Write(w, fmtName, res.Metadata.FieldNames, res.Records); err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "run %s: %d records in %s (backend calls %d, cache hits %d, filtered %d, errors %d)\n",
				res.Metadata.RunID, res.Stats.TotalRecords, res.Stats.Duration.Round(time.Millisecond),
				res.Stats.LLMCalls, res.Stats.CacheHits, res.Stats.Filtered, len(res.Errors))
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the YAML schema file")
	cmd.Flags().IntVar(&count, "count", 10, "number of records to generate")
	cmd.Flags().StringVar(&provider, "provider", "openai", "backend provider (openai, anthropic, google)")
	cmd.Flags().StringVar(&model, "model", "", "model identifier")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, ndjson, csv, yaml)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reproducible runs")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "coalesce generation requests into batches of this size")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the value cache")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}
