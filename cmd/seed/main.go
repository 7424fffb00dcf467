package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"company-directory/internal/config"
	"company-directory/internal/repository"
	"company-directory/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	file := flag.String("file", "companies.json", "JSON file with an array of companies (or {\"companies\": [...]})")
	dryRun := flag.Bool("dry-run", false, "validate every record without writing")
	owner := flag.String("owner", "", "user id that will own the imported companies")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	items, err := readSeedFile(*file)
	if err != nil {
		logger.Fatal("read seed file", zap.Error(err), zap.String("file", *file))
	}

	ctx := context.Background()
	if *dryRun {
		companies := service.NewCompanyService(logger, nil, 0)
		for i, item := range items {
			if _, err := companies.Prepare(item, nil); err != nil {
				logger.Fatal("invalid company", zap.Int("index", i), zap.Error(err))
			}
		}
		logger.Info("seed file is valid", zap.Int("count", len(items)))
		return
	}

	store, err := repository.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	companies := service.NewCompanyService(logger, store.Companies, 0)
	inserted, err := companies.Import(ctx, items, *owner)
	if err != nil {
		var importErr *service.ImportError
		if errors.As(err, &importErr) {
			logger.Fatal("invalid company", zap.Int("index", importErr.Index), zap.Error(importErr.Err))
		}
		logger.Fatal("seed companies", zap.Error(err))
	}
	logger.Info("seeded companies", zap.Int("count", len(inserted)))
}

func readSeedFile(path string) ([]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if items, ok := v["companies"].([]any); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("%s: expected an array of companies", path)
}
