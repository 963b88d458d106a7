package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/finfold/finfold/internal/config"
	"github.com/finfold/finfold/internal/database"
	"github.com/finfold/finfold/internal/database/repository"
	"github.com/finfold/finfold/internal/hints"
	"github.com/finfold/finfold/internal/ledger"
	"github.com/finfold/finfold/internal/provider"
	"github.com/finfold/finfold/internal/rules"
	"github.com/finfold/finfold/internal/server"
	"github.com/finfold/finfold/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if err := database.SeedDefaults(ctx, db); err != nil {
		log.Fatalf("seed defaults: %v", err)
	}

	// repositories
	itemRepo := repository.NewLineItemRepo(db)
	acctRepo := repository.NewAccountRepo(db)
	hintRepo := repository.NewHintRepo(db)
	eventRepo := repository.NewEventRepo(db)

	env, err := rules.NewEnv()
	if err != nil {
		log.Fatalf("rules env: %v", err)
	}

	hintStore := hints.NewStore(hintRepo, env)
	matcher := hints.NewMatcher(hintStore, env)
	ldg := ledger.New(db, itemRepo, eventRepo)

	// source clients share one client; deadlines come from request contexts
	fetchers := provider.Registry(&http.Client{},
		provider.Settings{BaseURL: cfg.Providers.CardAggregator.BaseURL, APIToken: cfg.Providers.CardAggregator.APIToken},
		provider.Settings{BaseURL: cfg.Providers.PeerPayment.BaseURL, APIToken: cfg.Providers.PeerPayment.APIToken},
		provider.Settings{BaseURL: cfg.Providers.ExpenseSplit.BaseURL, APIToken: cfg.Providers.ExpenseSplit.APIToken},
	)

	aggregates := service.NewAggregateCache(itemRepo, cfg.Currency)
	syncer := service.NewSyncer(ldg, acctRepo, fetchers, aggregates, cfg.Providers.FetchTimeout())

	srv := server.New(server.Deps{
		Ledger:      ldg,
		Hints:       hintStore,
		Matcher:     matcher,
		Events:      eventRepo,
		Accounts:    acctRepo,
		Syncer:      syncer,
		Aggregates:  aggregates,
		Duplicates:  service.NewDuplicateAdvisor(itemRepo),
		Maintenance: &service.MaintenanceService{DB: db},
	})

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := http.ListenAndServe(cfg.HTTP.Addr, srv); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
