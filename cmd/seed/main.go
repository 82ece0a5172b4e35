// Command seed upserts achievement definitions from a YAML file.
//
//	go run ./cmd/seed -file configs/achievements.yaml
//
// The running bot picks the new rules up on its next reload.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/config"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/db/postgres"
	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/features/achievements"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	defaultFile := os.Getenv("ACHIEVEMENTS_FILE")
	if defaultFile == "" {
		defaultFile = "configs/achievements.yaml"
	}
	file := flag.String("file", defaultFile, "achievement definitions (YAML)")
	flag.Parse()

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		log.WithError(err).Fatal("Failed to load database configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, postgres.Schema); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	defs, err := achievements.LoadDefinitions(*file)
	if err != nil {
		log.WithError(err).WithField("file", *file).Fatal("Failed to read definitions")
	}

	if err := achievements.NewRepository(pool).SeedDefinitions(ctx, defs); err != nil {
		log.WithError(err).Fatal("Failed to seed definitions")
	}

	log.WithFields(log.Fields{
		"file":        *file,
		"definitions": len(defs),
	}).Info("Achievement definitions seeded")
}
