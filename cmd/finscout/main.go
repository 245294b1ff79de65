// cmd/finscout is the entry point for the FinScout ingestion pipelines.
//
// Usage:
//
//	finscout companies    ingest companies from the national registry
//	finscout investors    ingest the static investor roster
//
// Configuration comes from environment variables (FINSCOUT_ prefix), with an
// optional .env file in the working directory. The process exits 0 on full
// pipeline success and nonzero on any fatal error, with the error written
// to stderr.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/finscout/finscout/internal/classify"
	"github.com/finscout/finscout/internal/config"
	"github.com/finscout/finscout/internal/embed"
	"github.com/finscout/finscout/internal/pipeline"
	"github.com/finscout/finscout/internal/source"
	"github.com/finscout/finscout/internal/storage"
	"github.com/finscout/finscout/internal/storage/postgres"
	"github.com/finscout/finscout/internal/storage/sqlite"
	"github.com/finscout/finscout/internal/translate"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("finscout: ")
	log.SetFlags(log.LstdFlags)

	// .env is a development convenience; a missing file is not an error.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	if command != "companies" && command != "investors" {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}

	if err := run(command); err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: finscout <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  companies    ingest companies from the national registry")
	fmt.Fprintln(os.Stderr, "  investors    ingest the static investor roster")
}

func run(command string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The investors pipeline always embeds; the companies pipeline honors
	// the embeddings toggle.
	needEmbeddings := command == "investors" || cfg.Embedding.Enabled
	if err := cfg.Validate(needEmbeddings); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	translator, err := translate.New(translate.Config{
		APIKey:  cfg.Translation.APIKey,
		BaseURL: cfg.Translation.BaseURL,
	})
	if err != nil {
		return err
	}

	registry := source.NewRegistry(
		source.RegistryConfig{BaseURL: cfg.Registry.BaseURL},
		classify.New(classify.Config{BaseURL: cfg.Registry.ClassificationsURL}),
		translator,
	)

	var vectorizer *embed.Vectorizer
	if needEmbeddings {
		client := embed.NewClient(embed.ClientConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
		vectorizer = embed.NewVectorizer(client, embed.VectorizerConfig{})
	}

	p := pipeline.New(pipeline.Options{
		Registry:    registry,
		RosterPath:  cfg.Roster.Path,
		Vectorizer:  vectorizer,
		Writer:      storage.NewWriter(store, cfg.Store.WriteBatchSize),
		TargetCount: cfg.Registry.TargetCount,
		Embeddings:  cfg.Embedding.Enabled,
	})

	ctx := context.Background()
	switch command {
	case "companies":
		return p.IngestCompanies(ctx)
	default:
		return p.IngestInvestors(ctx)
	}
}

func openStore(cfg *config.Config) (storage.EntityStore, error) {
	model := cfg.Embedding.Model
	if model == "" {
		model = "multilingual-embed-v1"
	}

	switch cfg.Store.Engine {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlite.NewStore(cfg.Store.SQLitePath, model)
	default:
		return postgres.NewStore(cfg.Store.PostgresDSN, model)
	}
}
