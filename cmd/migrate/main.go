package main

import (
	"context"
	"log"

	"example.com/policy-portal/internal/config"
	"example.com/policy-portal/internal/logging"
	"example.com/policy-portal/internal/seed"
	"example.com/policy-portal/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}

	if err := store.Migrate(db); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("migrations applied")

	if cfg.SeedFile == "" {
		return
	}
	cat, err := seed.Load(cfg.SeedFile)
	if err != nil {
		logger.Fatal("catalogue", zap.Error(err))
	}
	n, err := seed.Apply(context.Background(), store.New(db), cat, logger)
	if err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
	logger.Info("catalogue applied", zap.Int("inserted", n), zap.String("file", cfg.SeedFile))
}

/*

psql -U postgres -d policy_management

\x on
SELECT id, name, category, type, priority, status FROM policies;
SELECT action, entity_type, entity_id, user_id, timestamp FROM audit_logs ORDER BY timestamp;
\x off

*/
