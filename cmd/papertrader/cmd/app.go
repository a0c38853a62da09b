package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/internal/charts"
	"github.com/rustyeddy/papertrader/internal/logger"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/market/yahoo"
	"github.com/rustyeddy/papertrader/pkg/id"
)

// app is the wired service graph a command runs against.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  ledger.Store
	market market.Provider
	engine *ledger.Engine
	charts *charts.Service
}

// loadConfig reads the config file and environment, then applies flags.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.dbPath != "" {
		cfg.Journal.DBPath = o.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp wires config, logging, storage and market data. Interactive
// commands log at warn unless a level was asked for, so the engine's info
// lines do not mix with command output.
func (o *options) newApp(interactive bool) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if interactive && o.logLevel == "" {
		cfg.Log.Level = "warn"
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	store, err := journal.Open(cfg.Journal.Type, cfg.Journal.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// Validate has already checked both durations.
	timeout, _ := cfg.Market.TimeoutDuration()
	ttl, _ := cfg.Market.CacheTTLDuration()
	client := yahoo.NewClient(cfg.Market.BaseURL, cfg.Market.SearchURL, timeout)
	provider := market.NewQuoteCache(client, ttl)

	// Orders must fill at the price of the moment, so the engine reads
	// quotes straight from the client. Only display paths use the cache.
	engine := ledger.NewEngine(store, client, ledger.Options{
		InitialBalance:   decimal.NewFromFloat(cfg.Account.InitialBalance),
		Currency:         cfg.Account.Currency,
		HistoryLimit:     cfg.Journal.HistoryLimit,
		QuoteRetries:     cfg.Market.SummaryRetries,
		QuoteConcurrency: cfg.Market.SummaryConcurrency,
	}, log)

	return &app{
		cfg:    cfg,
		log:    log,
		store:  store,
		market: provider,
		engine: engine,
		charts: charts.NewService(provider, log),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// resolveAccount accepts an account ID or an account name.
func (a *app) resolveAccount(ctx context.Context, ref string) (ledger.Account, error) {
	if _, err := id.Parse(id.Account, ref); err == nil {
		return a.engine.Account(ctx, ref)
	}
	accounts, err := a.engine.Accounts(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	for _, acct := range accounts {
		if strings.EqualFold(acct.Name, strings.TrimSpace(ref)) {
			return acct, nil
		}
	}
	return ledger.Account{}, fmt.Errorf("%w: %q", ledger.ErrAccountNotFound, ref)
}
