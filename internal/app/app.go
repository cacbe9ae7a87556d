// Package app wires configuration, storage, clients and services into
// a running application.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yanwei/fundwatch/internal/clients/eastmoney"
	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/services/ledger"
	"github.com/yanwei/fundwatch/internal/services/market"
	"github.com/yanwei/fundwatch/internal/services/refresh"
	"github.com/yanwei/fundwatch/internal/storage"
)

// App holds all initialized services and clients. It is the shared
// core behind cmd/fundwatch-server.
type App struct {
	Config         *common.Config
	Logger         *common.Logger
	Store          interfaces.Store
	FundClient     interfaces.FundClient
	Calendar       *market.Calendar
	LedgerService  interfaces.LedgerService
	RefreshService interfaces.RefreshService
	StartupTime    time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, the provider client and
// all services. configPath may be empty, in which case FUNDWATCH_CONFIG
// and the binary directory are checked.
func NewApp(configPath string) (*App, error) {
	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FUNDWATCH_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "fundwatch.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/fundwatch.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory so the server is
	// self-contained wherever it is installed.
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Calendar.HolidayFile != "" && !filepath.IsAbs(config.Calendar.HolidayFile) {
		config.Calendar.HolidayFile = filepath.Join(binDir, config.Calendar.HolidayFile)
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := storage.NewFileStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := eastmoney.NewClient(
		eastmoney.WithFundBaseURL(config.Provider.FundBaseURL),
		eastmoney.WithIndexBaseURL(config.Provider.IndexBaseURL),
		eastmoney.WithSearchBaseURL(config.Provider.SearchBaseURL),
		eastmoney.WithRateLimit(config.Provider.RateLimit),
		eastmoney.WithTimeout(config.Provider.GetTimeout()),
		eastmoney.WithLogger(logger),
	)

	calendar := market.NewCalendar(config.Calendar.HolidayFile, logger)
	ledgerService := ledger.NewService(store, logger)
	refreshService := refresh.NewService(client, ledgerService, calendar, logger, &config.Refresh)

	return &App{
		Config:         config,
		Logger:         logger,
		Store:          store,
		FundClient:     client,
		Calendar:       calendar,
		LedgerService:  ledgerService,
		RefreshService: refreshService,
		StartupTime:    time.Now(),
	}, nil
}

// Start brings up background work: the calendar's daily reload, one
// initial dataset fill and, if the persisted settings ask for it, the
// live-update loop.
func (a *App) Start(ctx context.Context) error {
	a.Calendar.Start()

	if err := a.RefreshService.Refresh(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Initial refresh failed - dataset fills on next cycle")
	}
	if err := a.RefreshService.RefreshIndices(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Initial index refresh failed")
	}

	settings, err := a.LedgerService.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	a.RefreshService.SetLiveUpdate(settings.LiveUpdate)

	return nil
}

// Close stops background work.
func (a *App) Close() {
	a.RefreshService.SetLiveUpdate(false)
	a.Calendar.Stop()
}
