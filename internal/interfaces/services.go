package interfaces

import (
	"context"
	"time"

	"github.com/yanwei/fundwatch/internal/models"
)

// AdjustMode selects the direction of a ledger adjustment.
type AdjustMode string

const (
	AdjustAdd    AdjustMode = "add"
	AdjustReduce AdjustMode = "reduce"
)

// LedgerService manages the user's tracked funds and index watch-list.
// Every mutation persists through the Store before returning.
type LedgerService interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	Add(ctx context.Context, code string) error
	AddMany(ctx context.Context, codes []string) error
	Remove(ctx context.Context, code string) error
	SetShares(ctx context.Context, code string, shares float64) error
	SetCost(ctx context.Context, code string, cost *float64) error
	Adjust(ctx context.Context, code string, mode AdjustMode, deltaShares float64, price *float64) error
	ReorderFunds(ctx context.Context, from, to int) error

	AddIndex(ctx context.Context, code string) error
	RemoveIndex(ctx context.Context, code string) error
	ReorderIndices(ctx context.Context, from, to int) error

	Export(ctx context.Context) (*models.Snapshot, error)
	Import(ctx context.Context, snapshot *models.Snapshot) error

	Settings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error
}

// RefreshService drives quote refreshes and owns the displayed dataset.
// The dataset is replaced wholesale on publish; readers never observe a
// half-updated mix of old and new rows.
type RefreshService interface {
	Refresh(ctx context.Context) error
	RefreshIndices(ctx context.Context) error
	Dataset() ([]models.FundRow, models.PortfolioTotals, time.Time)
	Indices() []models.IndexQuote
	Recompute(ctx context.Context) error
	DropFund(code string)
	SetLiveUpdate(enabled bool)
}

// MarketCalendar answers whether the exchange is currently open for the
// refresh gate, and the coarser session phase for display.
type MarketCalendar interface {
	IsOpen() bool
	Status() models.MarketStatus
}
