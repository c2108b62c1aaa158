package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/culturequiz/backend/internal/catalog"
	"github.com/culturequiz/backend/internal/config"
	"github.com/culturequiz/backend/internal/daily"
	"github.com/culturequiz/backend/internal/database"
	"github.com/culturequiz/backend/internal/logger"
)

// dailyjob makes sure tomorrow's challenge exists. Safe to run repeatedly.
func main() {
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := daily.NewService(daily.NewStore(db), catalog.Default().Pools(), appLog)
	c, err := svc.EnsureTomorrow(ctx)
	if err != nil {
		appLog.Fatal("failed to ensure tomorrow's challenge", "error", err)
	}
	appLog.Info("daily challenge ready", "date", c.ChallengeDate, "number", c.ChallengeNumber)
}
