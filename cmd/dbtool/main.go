// Command dbtool initialises, backs up and restores the sqlite database, and
// reports the state of the background job queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	dbfs "github.com/garnizeh/rojgar/db"
	"github.com/garnizeh/rojgar/internal/config"
	"github.com/garnizeh/rojgar/internal/db"
	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/internal/repository/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	file := flag.String("file", "", "backup file (default: <database_path>.bak)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: dbtool [-config PATH] [-file PATH] init|backup|restore|queue")
	}
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	backup := *file
	if backup == "" {
		backup = cfg.DatabasePath + ".bak"
	}

	ctx := context.Background()
	switch flag.Arg(0) {
	case "init":
		err = withDB(ctx, cfg.DatabasePath, func(d *db.DB) error {
			return db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles)
		})
		if err == nil {
			fmt.Println("Database initialized successfully.")
		}
	case "backup":
		err = withDB(ctx, cfg.DatabasePath, func(d *db.DB) error {
			return d.Backup(ctx, backup)
		})
		if err == nil {
			fmt.Printf("Database backup written to %s.\n", backup)
		}
	case "restore":
		err = db.Restore(backup, cfg.DatabasePath)
		if err == nil {
			fmt.Println("Database restore completed.")
		}
	case "queue":
		err = withDB(ctx, cfg.DatabasePath, func(d *db.DB) error {
			stats, err := sqlite.New(d, nil).QueueStats(ctx)
			if err != nil {
				return err
			}
			for _, status := range []string{models.JobQueued, models.JobRunning, models.JobRetry, models.JobDone, "dead"} {
				fmt.Printf("%-8s %d\n", status, stats[status])
			}
			return nil
		})
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func withDB(ctx context.Context, path string, fn func(*db.DB) error) error {
	d, err := db.New(ctx, path)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}
