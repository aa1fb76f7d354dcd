// Command migrate applies or rolls back the database schema.
//
//	migrate [-config path] up|down|status|version
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yourorg/quote-vault/internal/config"
	"github.com/yourorg/quote-vault/internal/database"
	"github.com/yourorg/quote-vault/internal/logging"
	"github.com/yourorg/quote-vault/internal/migrations"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] up|down|status|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrator, err := migrations.NewMigrator(db.DB, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "version":
		var version int64
		if version, err = migrator.Version(ctx); err == nil {
			fmt.Println(version)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Migration command failed", zap.String("command", command), zap.Error(err))
		db.Close()
		os.Exit(1)
	}
}
