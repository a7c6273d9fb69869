package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/thiago-r-goveia/cnpj-loader/internal/catalog"
	"github.com/thiago-r-goveia/cnpj-loader/internal/config"
	"github.com/thiago-r-goveia/cnpj-loader/internal/database"
	"github.com/thiago-r-goveia/cnpj-loader/internal/ingestion"
)

func setup() (string, *ingestion.Service, func(), error) {
	if len(os.Args) < 2 {
		return "", nil, nil, fmt.Errorf("please provide the extract folder path as a command-line argument")
	}
	filesPath := os.Args[1]

	cfg, err := config.New()
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbpool, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		return "", nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	ctx := context.Background()
	dbManager := database.NewPostgresDBManager(ctx, dbpool)

	if err := dbManager.EnsureLedgerTable(); err != nil {
		dbpool.Close()
		return "", nil, nil, fmt.Errorf("failed to ensure ledger table: %w", err)
	}

	service := ingestion.NewService(dbManager, catalog.New(), cfg)

	cleanupFunc := func() {
		dbpool.Close()
	}

	return filesPath, service, cleanupFunc, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}
	startTime := time.Now()

	filesPath, service, cleanupFunc, err := setup()
	if err != nil {
		log.Fatal(err)
	}
	defer cleanupFunc()

	summary, err := service.Run(context.Background(), filesPath)
	if err != nil {
		log.Fatalf("Error during ingestion: %v\n", err)
	}

	log.Printf("Ingestion finished: %s", summary)
	log.Printf("Execution time: %s\n", time.Since(startTime))
}
