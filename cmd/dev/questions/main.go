// Command questions runs the question engine once against a local Ollama,
// using an in-memory database seeded with the default prompt and schema.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"

	dbfs "github.com/garnizeh/rojgar/db"
	"github.com/garnizeh/rojgar/internal/ai"
	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/db"
	"github.com/garnizeh/rojgar/internal/repository/sqlite"
	"github.com/garnizeh/rojgar/internal/validate"
	"github.com/garnizeh/rojgar/pkg/ollama"
)

func main() {
	stack := flag.String("stack", "backend_development", "tech stack to ask about")
	model := flag.String("model", "", "override engine model")
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *model != "" {
		cfg.EngineConfig.Model = *model
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	s, err := validate.Stack(*stack)
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ai.SetLogger(logger)
	ollama.SetLogger(logger)

	ctx := context.Background()
	database, err := db.New(ctx, ":memory:")
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()
	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		log.Fatal(err)
	}
	repo := sqlite.New(database, logger)

	llm, err := ollama.NewDefaultClient(cfg.Ollama, ollama.WithJSONFormat())
	if err != nil {
		log.Fatal(err)
	}
	defer llm.Close()

	models, err := llm.ListModels(ctx)
	if err != nil {
		log.Fatalf("ollama at %s: %v", cfg.Ollama.BaseURL, err)
	}
	for _, m := range models {
		logger.Debug("available model", "name", m.Name)
	}

	engine, err := ai.NewEngine(ctx, llm, cfg.EngineConfig, repo, repo)
	if err != nil {
		log.Fatal(err)
	}

	qs, err := engine.GenerateQuestions(ctx, s)
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(qs); err != nil {
		log.Fatal(err)
	}
}
