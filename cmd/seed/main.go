package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"arbor/internal/config"
	"arbor/internal/repository/postgres"
	postgresTree "arbor/internal/repository/postgres/tree"
	"arbor/internal/seed"
	serviceTree "arbor/internal/service/tree"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	file := flag.String("file", "", "YAML fixture to load (defaults to the embedded demo tree)")
	tenant := flag.String("tenant", "demo", "Tenant to seed into")
	dropTables := flag.Bool("drop-tables", false, "Drop tree tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed nodes")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load the fixture before touching the database so a typo fails fast
	var fixture *seed.Fixture
	if !*schemaOnly {
		var err error
		if *file == "" {
			fixture, err = seed.Default()
		} else {
			var f *os.File
			f, err = os.Open(*file)
			if err != nil {
				log.Fatalf("Failed to open fixture: %v", err)
			}
			fixture, err = seed.Parse(f)
			f.Close()
		}
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		logger.Warn("dropping tree tables", "prefix", cfg.TablePrefix)
		if err := postgres.DropSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	logger.Info("schema ready", "environment", cfg.Environment, "prefix", cfg.TablePrefix)

	if *schemaOnly {
		return
	}

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	treeService, projectService := serviceTree.NewServices(serviceTree.Dependencies{
		Nodes:     postgresTree.NewNodeStore(repoConfig),
		Closure:   postgresTree.NewClosureIndex(repoConfig),
		Reader:    postgresTree.NewTreeReader(repoConfig),
		TxManager: postgres.NewTransactionManager(pool, logger),
		Logger:    logger,
	})

	res, err := seed.Seed(ctx, projectService, treeService, *tenant, fixture, logger)
	if err != nil {
		log.Fatalf("Seeding failed after %d nodes: %v", res.Nodes, err)
	}

	logger.Info("seeding complete", "tenant", *tenant, "projects", res.Projects, "nodes", res.Nodes)
}
