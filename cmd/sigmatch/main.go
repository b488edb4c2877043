// Copyright 2025 Poiesic Systems
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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/sigmatch"
	"github.com/poiesic/sigmatch/ai"
	"github.com/poiesic/sigmatch/core"
	"github.com/poiesic/sigmatch/match"
	"github.com/poiesic/sigmatch/reembed"
	"github.com/poiesic/sigmatch/server"
)

func main() {
	app := &cli.App{
		Name:  "sigmatch",
		Usage: "Match startup descriptions against government demand signals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP matching API",
				Action: serveCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
				),
			},
			{
				Name:      "seed",
				Usage:     "Ingest a JSON file of signal records",
				Action:    seedCommand,
				ArgsUsage: "<signals.json>",
				Flags:     engineFlags(),
			},
			{
				Name:      "match",
				Usage:     "Run one match query and print results as JSON",
				Action:    matchCommand,
				ArgsUsage: "<startup description>",
				Flags: append(engineFlags(),
					&cli.IntFlag{
						Name:  "top-n",
						Usage: "Maximum number of matches to return",
						Value: match.DefaultTopN,
					},
					&cli.StringFlag{
						Name:  "agency",
						Usage: "Restrict matches to one agency",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed all stored signals with a new embedding model",
				Action: reembedCommand,
				Flags: append(engineFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of signals to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N signals",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.BoolFlag{
			Name:  "local-embedder",
			Usage: "Use the offline feature-hashing embedder instead of a provider",
		},
	}
}

func openEngine(ctx context.Context, c *cli.Context) (*sigmatch.Engine, error) {
	opts := []sigmatch.EngineOption{}
	if c.Bool("local-embedder") {
		opts = append(opts, sigmatch.WithLocalEmbedder())
	} else {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)
		if err := aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid AI configuration: %w", err)
		}
		opts = append(opts, sigmatch.WithAIConfig(aiConfig))
	}

	engine, err := sigmatch.NewEngine(ctx, c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func serveCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	matcher, err := engine.NewMatchService()
	if err != nil {
		return fmt.Errorf("failed to create match service: %w", err)
	}

	pipeline, err := engine.NewIngestPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}
	defer pipeline.Close()

	srv, err := server.New(matcher, pipeline, engine.Index())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(c.String("addr"))
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// signalRecord is the JSON shape of one record in an ingest file.
type signalRecord struct {
	Id            string   `json:"id"`
	SourceType    string   `json:"source_type"`
	Agency        string   `json:"agency,omitempty"`
	CategoryCodes []string `json:"category_codes,omitempty"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	PublishedAt   string   `json:"published_at"`
	ResponseDueAt string   `json:"response_due_at,omitempty"`
}

func seedCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one argument: path to a JSON file of signal records")
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	var records []signalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse input file: %w", err)
	}

	ctx := context.Background()
	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingest pipeline: %w", err)
	}
	defer pipeline.Close()

	signals := make([]*core.Signal, 0, len(records))
	skipped := 0
	for _, record := range records {
		signal, err := record.toSignal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping record %q: %v\n", record.Id, err)
			skipped++
			continue
		}
		signals = append(signals, signal)
	}

	result, err := pipeline.IngestBatch(ctx, signals)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	for _, rejected := range result.Rejected {
		fmt.Fprintf(os.Stderr, "rejected record %q: %v\n", rejected.Id, rejected.Err)
	}
	fmt.Fprintf(os.Stderr, "Ingested %d signals (%d rejected, %d unparseable)\n",
		len(result.Accepted), len(result.Rejected), skipped)

	return nil
}

func (r signalRecord) toSignal() (*core.Signal, error) {
	sourceType, err := core.ParseSourceType(r.SourceType)
	if err != nil {
		return nil, err
	}

	publishedAt, err := time.Parse(time.RFC3339, r.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid published_at: %w", err)
	}

	signal := &core.Signal{
		Id:            core.ID(r.Id),
		SourceType:    sourceType,
		Agency:        r.Agency,
		CategoryCodes: r.CategoryCodes,
		Title:         r.Title,
		Description:   r.Description,
		PublishedAt:   publishedAt,
	}

	if r.ResponseDueAt != "" {
		dueAt, err := time.Parse(time.RFC3339, r.ResponseDueAt)
		if err != nil {
			return nil, fmt.Errorf("invalid response_due_at: %w", err)
		}
		signal.ResponseDueAt = dueAt
	}

	return signal, nil
}

func matchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one argument: the startup description")
	}

	ctx := context.Background()
	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	matcher, err := engine.NewMatchService()
	if err != nil {
		return fmt.Errorf("failed to create match service: %w", err)
	}

	results, err := matcher.Match(ctx, match.Request{
		Description: c.Args().First(),
		TopN:        c.Int("top-n"),
		Filter:      core.Filter{Agency: c.String("agency")},
	})
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	type outputMatch struct {
		Id        string  `json:"id"`
		Title     string  `json:"title"`
		Agency    string  `json:"agency,omitempty"`
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	}

	output := make([]outputMatch, len(results))
	for i, result := range results {
		output[i] = outputMatch{
			Id:        string(result.Signal.Id),
			Title:     result.Signal.Title,
			Agency:    result.Signal.Agency,
			Score:     result.Score,
			Reasoning: result.Reasoning,
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(ctx, c)
	if err != nil {
		return err
	}
	defer engine.Close()

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	reembedder := engine.NewReembedder(reembedConfig, os.Stderr)
	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}

	// New vectors are in a different space; rebuild before the store closes.
	if err := engine.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
