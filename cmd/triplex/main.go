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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/triplex"
	"github.com/poiesic/triplex/ai"
	"github.com/poiesic/triplex/ingest"
	"github.com/poiesic/triplex/source/file"
)

func main() {
	app := &cli.App{
		Name:  "triplex",
		Usage: "Transactional ingestion into search, vector and document backends",
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
				Name:   "ingest",
				Usage:  "Ingest a source catalog into all backends",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "staging",
						Usage:    "Path to the staging directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Path to the source content directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "embeddinggemma",
					},
					&cli.StringFlag{
						Name:  "chat-model",
						Usage: "Chat model for summaries and image descriptions",
						Value: "qwen2.5-vl:7b",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of items ingested in parallel",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "max-images",
						Usage: "Maximum images processed per item",
						Value: 8,
					},
					&cli.IntFlag{
						Name:  "min-section-length",
						Usage: "Smallest section kept, in characters",
						Value: 40,
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
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Run pre-flight backend checks and exit",
					},
				},
			},
			{
				Name:   "recover",
				Usage:  "Drive stale transaction checkpoints to resolution",
				Action: recoverCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "staging",
						Usage:    "Path to the staging directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Path to the source content directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "embeddinggemma",
					},
					&cli.StringFlag{
						Name:  "chat-model",
						Usage: "Chat model for summaries and image descriptions",
						Value: "qwen2.5-vl:7b",
					},
				},
			},
			{
				Name:      "verify",
				Usage:     "Audit items for all-or-nothing backend presence",
				ArgsUsage: "ITEM_ID [ITEM_ID...]",
				Action:    verifyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "staging",
						Usage: "Path to the staging directory",
						Value: os.TempDir(),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	client, err := file.NewClient(c.String("source"))
	if err != nil {
		return fmt.Errorf("failed to open source directory: %w", err)
	}

	supervisor, err := system.NewSupervisor(client, ingest.WithProgress(os.Stderr))
	if err != nil {
		return err
	}

	if c.Bool("dry-run") {
		if err := supervisor.Preflight(ctx); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "All backends reachable.")
		return nil
	}

	// Resolve anything a previous crashed run left behind before starting
	// new transactions.
	recovery, err := system.NewRecovery(client)
	if err != nil {
		return err
	}
	report, err := recovery.Run(ctx)
	if err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}
	if report.Resolved+report.Unclean+report.Orphans > 0 {
		fmt.Fprintf(os.Stderr, "Recovery: %d resolved, %d unclean, %d orphans\n",
			report.Resolved, report.Unclean, report.Orphans)
	}

	summary, err := supervisor.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Done: %d succeeded, %d skipped, %d failed\n",
		summary.Succeeded, summary.Skipped, summary.Failed)
	for _, f := range summary.Failures {
		fmt.Fprintf(os.Stderr, "  %s (%s): %s\n", f.ItemID, f.Stage, f.Cause)
		if !f.RollbackClean {
			fmt.Fprintf(os.Stderr, "    rollback incomplete: manual backend cleanup required\n")
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", summary.Failed,
			summary.Succeeded+summary.Skipped+summary.Failed)
	}
	return nil
}

func recoverCommand(c *cli.Context) error {
	ctx := context.Background()

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	client, err := file.NewClient(c.String("source"))
	if err != nil {
		return fmt.Errorf("failed to open source directory: %w", err)
	}

	recovery, err := system.NewRecovery(client)
	if err != nil {
		return err
	}
	report, err := recovery.Run(ctx)
	if err != nil {
		return fmt.Errorf("recovery failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Recovery: %d resolved, %d unclean, %d orphans\n",
		report.Resolved, report.Unclean, report.Orphans)
	if report.Unclean > 0 {
		return fmt.Errorf("%d items need manual backend cleanup", report.Unclean)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	ctx := context.Background()

	itemIDs := c.Args().Slice()
	if len(itemIDs) == 0 {
		return fmt.Errorf("at least one item ID is required")
	}

	system, err := newSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	report, err := system.NewVerifier().Verify(ctx, itemIDs)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Checked %d items, %d inconsistent\n",
		report.Checked, len(report.Inconsistent))
	for _, p := range report.Inconsistent {
		fmt.Fprintf(os.Stderr, "  %s: doc=%t vectors=%d sections=%d\n",
			p.ItemID, p.HasDocument, p.VectorCount, p.SectionCount)
	}
	if len(report.Inconsistent) > 0 {
		return fmt.Errorf("%d items violate all-or-nothing presence", len(report.Inconsistent))
	}
	return nil
}

// newSystem builds a System from the command's common flags.
func newSystem(c *cli.Context) (*triplex.System, error) {
	var aiOpts []ai.ConfigOption
	if host := c.String("ai-host"); host != "" {
		aiOpts = append(aiOpts, ai.WithHost(host))
	}
	if model := c.String("embedding-model"); model != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingModel(model))
	}
	if model := c.String("chat-model"); model != "" {
		aiOpts = append(aiOpts, ai.WithChatModel(model))
	}
	aiConfig := ai.NewConfig(aiOpts...)

	ingestConfig := ingest.DefaultConfig()
	if c.IsSet("concurrency") {
		ingestConfig.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("max-images") {
		ingestConfig.MaxImages = c.Int("max-images")
	}
	if c.IsSet("min-section-length") {
		ingestConfig.MinSectionLength = c.Int("min-section-length")
	}
	if c.IsSet("max-retries") {
		ingestConfig.MaxAttempts = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		ingestConfig.BaseDelay = c.Duration("retry-delay")
	}

	system, err := triplex.NewSystem(c.String("db"), c.String("staging"),
		triplex.WithAIConfig(aiConfig),
		triplex.WithIngestConfig(ingestConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open system: %w", err)
	}
	return system, nil
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
