package main

import (
	"fmt"
	"io/fs"
	"os"

	dbfs "github.com/devarche/wpp-dashboard/db"
	"github.com/devarche/wpp-dashboard/internal/config"
	"github.com/devarche/wpp-dashboard/internal/db"
	"github.com/devarche/wpp-dashboard/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|down|version|force N>")
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	migrations, err := fs.Sub(dbfs.MigrationsFS, "migrations")
	if err != nil {
		logger.L.Error("migrations subtree", "error", err)
		os.Exit(1)
	}

	if err := db.RunMigrate(logger.L, cfg.Postgres, migrations, os.Args[1], os.Args[2:]); err != nil {
		logger.L.Error("migration failed", "error", err)
		os.Exit(1)
	}
}
