package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/culturequiz/backend/internal/catalog"
	"github.com/culturequiz/backend/internal/config"
	"github.com/culturequiz/backend/internal/database"
	"github.com/culturequiz/backend/internal/generator"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/metadata"
	"github.com/culturequiz/backend/internal/models"
	"github.com/culturequiz/backend/internal/questions"
)

func main() {
	var (
		contentType string
		difficulty  string
		limit       int
		dryRun      bool
	)
	flag.StringVar(&contentType, "type", "", "only pre-generate this content type (film, book, music)")
	flag.StringVar(&difficulty, "difficulty", string(models.DifficultyMedium), "difficulty to generate at")
	flag.IntVar(&limit, "limit", 0, "limit number of titles processed")
	flag.BoolVar(&dryRun, "dry-run", false, "print the planned titles without generating")
	flag.Parse()

	var only *models.ContentType
	if contentType != "" {
		ct := models.ContentType(contentType)
		if !ct.Valid() {
			fmt.Printf("unknown content type %q\n", contentType)
			os.Exit(2)
		}
		only = &ct
	}
	diff := models.Difficulty(difficulty)
	if !diff.Valid() {
		fmt.Printf("unknown difficulty %q\n", difficulty)
		os.Exit(2)
	}

	items := catalog.Default().Items(only)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if dryRun {
		for _, item := range items {
			fmt.Printf("%s\t%s\t%s\n", item.Type, diff, item.Title)
		}
		return
	}

	cfg := config.Load()
	appLog, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer appLog.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		appLog.Fatal("failed to run migrations", "error", err)
	}

	svc := questions.NewService(
		questions.NewStore(db),
		generator.NewGenerator(cfg, appLog),
		metadata.NewEnricherFromConfig(cfg, appLog),
		appLog,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := svc.Pregenerate(ctx, items, diff, cfg.PregenerateDelay)
	svc.Wait()

	counts := map[models.PregenerateStatus]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	appLog.Info("pregenerate finished", "planned", len(items), "processed", len(results),
		"generated", counts[models.PregenerateGenerated], "cached", counts[models.PregenerateCached],
		"errors", counts[models.PregenerateError])

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	if counts[models.PregenerateError] > 0 {
		os.Exit(1)
	}
}
