package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/jointenant/internal/infrastructure/config"
	"github.com/erp/jointenant/internal/infrastructure/logger"
	"github.com/erp/jointenant/internal/infrastructure/migration"
	"github.com/erp/jointenant/internal/infrastructure/persistence"
	"github.com/erp/jointenant/internal/infrastructure/persistence/association"
	"github.com/erp/jointenant/internal/infrastructure/telemetry"
	"github.com/erp/jointenant/migrations"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath    string
		logLevel      string
		migrationsDir string
	)

	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&migrationsDir, "dir", "migrations", "Directory scaffolded migrations are written to")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	log = providers.Logger

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(log),
		persistence.WithTracing(telemetry.DBTracing(cfg.Telemetry, cfg.Database.Driver)),
		persistence.WithAugmentorOptions(
			association.WithMeter(providers.GuardMeter()),
			association.WithDefaultTenantType(cfg.Tenant.DefaultClassName),
			association.WithColumnFallbackWarning(cfg.Tenant.WarnOnColumnFallback),
		),
	)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}

	exitCode := 0
	log.Info("jointenant started",
		zap.String("command", command),
		zap.String("driver", cfg.Database.Driver),
	)

	switch command {
	case "relations":
		if err := writeRelations(os.Stdout, db.Registry.Relations()); err != nil {
			log.Fatal("Failed to print relations", zap.Error(err))
		}

	case "check":
		missing := missingTenantColumns(db.DB, db.Registry.Relations())
		if len(missing) == 0 {
			log.Info("Every tenant-scoped join table has its tenant column")
			break
		}
		for _, col := range missing {
			log.Error("Join table is missing its tenant column",
				zap.String("join_table", col.Table),
				zap.String("column", col.Column),
			)
		}
		exitCode = 2

	case "scaffold":
		missing := missingTenantColumns(db.DB, db.Registry.Relations())
		if len(missing) == 0 {
			log.Info("Nothing to scaffold")
			break
		}
		for _, col := range missing {
			mf, err := migration.CreateTenantColumnMigration(migrationsDir, col)
			if err != nil {
				log.Fatal("Failed to create migration", zap.Error(err))
			}
			log.Info("Migration created",
				zap.String("join_table", col.Table),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
		}

	case "automigrate":
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Auto-migration failed", zap.Error(err))
		}
		log.Info("Schema migrated")

	case "migrate":
		runMigrate(db, args[1:], log)
		return

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		exitCode = 1
	}

	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
	if exitCode != 0 {
		_ = providers.Shutdown(ctx)
		_ = logger.Sync(log)
		os.Exit(exitCode)
	}
}

// runMigrate applies the embedded migrations. The migrator owns the
// connection from here on and closes it.
func runMigrate(db *persistence.Database, args []string, log *zap.Logger) {
	if len(args) == 0 {
		log.Fatal("Migrate subcommand required. Usage: jointenant migrate up|down|step <n>|version")
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
	}
	m, err := migration.New(sqlDB, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		if err := m.Down(); err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "step":
		if len(args) < 2 {
			log.Fatal("Step count required. Usage: jointenant migrate step <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		if err := m.Steps(n); err != nil {
			log.Fatal("Migration step failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}

	case "list":
		names, err := migration.ListMigrations(migrations.FS)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, name := range names {
			fmt.Println("  -", name)
		}

	default:
		log.Fatal("Unknown migrate subcommand", zap.String("subcommand", args[0]))
	}
}

func printUsage() {
	fmt.Println(`Tenant-scoped join table tool

Usage:
  jointenant [flags] <command> [arguments]

Commands:
  relations             List declared many-to-many relations and their tenant columns
  check                 Report tenant-scoped join tables missing their tenant column
  scaffold              Write migrations adding the missing tenant columns
  automigrate           Create or update the schema from the models
  migrate up            Apply all embedded migrations
  migrate down          Roll back all embedded migrations
  migrate step <n>      Apply n migrations (positive=up, negative=down)
  migrate version       Show current migration version
  migrate list          List embedded migrations

Flags:
  -config string        Path to a TOML config file (default: ./config.toml)
  -dir string           Directory scaffolded migrations are written to (default: migrations)
  -log-level string     Log level (default: info)

Environment:
  JOINTENANT_DATABASE_HOST, JOINTENANT_DATABASE_PORT, JOINTENANT_DATABASE_USER,
  JOINTENANT_DATABASE_PASSWORD, JOINTENANT_DATABASE_DBNAME, JOINTENANT_DATABASE_DRIVER`)
}
