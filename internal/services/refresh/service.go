// Package refresh drives quote fetches and owns the published dataset:
// the joined fund rows, portfolio totals and index quotes the dashboard
// reads. The dataset is replaced wholesale on every publish; a fetch
// that fails or arrives late never corrupts what is already shown.
package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/models"
	"github.com/yanwei/fundwatch/internal/services/valuation"
)

// SnapshotSource is the slice of the ledger the refresher depends on.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// Compile-time interface check
var _ interfaces.RefreshService = (*Service)(nil)

// Service implements RefreshService.
type Service struct {
	client   interfaces.FundClient
	ledger   SnapshotSource
	calendar interfaces.MarketCalendar
	logger   *common.Logger

	fundInterval      time.Duration
	fastIndexInterval time.Duration

	now func() time.Time // injectable clock for testing

	// Guards the published dataset. gen orders concurrent refreshes:
	// each refresh takes a generation before fetching and publishes
	// only if no later refresh has started since.
	mu        sync.RWMutex
	gen       uint64
	idxGen    uint64
	rows      []models.FundRow
	totals    models.PortfolioTotals
	quotes    []models.FundQuote
	indices   []models.IndexQuote
	updatedAt time.Time

	// Drops scheduled ticks that land while a fetch is still running.
	inFlight atomic.Bool

	loopMu sync.Mutex
	cancel context.CancelFunc
}

// NewService creates a refresh service.
func NewService(client interfaces.FundClient, ledger SnapshotSource, calendar interfaces.MarketCalendar, logger *common.Logger, cfg *common.RefreshConfig) *Service {
	return &Service{
		client:            client,
		ledger:            ledger,
		calendar:          calendar,
		logger:            logger,
		fundInterval:      cfg.GetFundInterval(),
		fastIndexInterval: cfg.GetFastIndexInterval(),
		now:               time.Now,
	}
}

// Refresh fetches quotes for every tracked fund and publishes a fresh
// dataset. An empty ledger publishes an empty dataset without a network
// call. On fetch failure the previous dataset is retained.
func (s *Service) Refresh(ctx context.Context) error {
	snapshot, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}
	codes := snapshot.FundCodes()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	if len(codes) == 0 {
		s.publish(gen, nil, models.PortfolioTotals{}, nil)
		return nil
	}

	raws, err := s.client.FetchFundQuotes(ctx, codes)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Fund quote fetch failed - keeping previous dataset")
		return err
	}

	quotes := make([]models.FundQuote, 0, len(raws))
	for _, raw := range raws {
		quotes = append(quotes, valuation.Normalize(raw))
	}
	rows := valuation.RebuildRows(quotes, snapshot)
	totals := valuation.Aggregate(rows)

	if s.publish(gen, rows, totals, quotes) {
		s.logger.Debug().Int("funds", len(rows)).Float64("amount", totals.Amount).Msg("Dataset refreshed")
	}
	return nil
}

// publish installs a dataset if no newer refresh has started. Returns
// whether the dataset was accepted.
func (s *Service) publish(gen uint64, rows []models.FundRow, totals models.PortfolioTotals, quotes []models.FundQuote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug().Uint64("gen", gen).Uint64("current", s.gen).Msg("Stale refresh discarded")
		return false
	}
	s.rows = rows
	s.totals = totals
	s.quotes = quotes
	s.updatedAt = s.now()
	return true
}

// RefreshIndices fetches quotes for the index watch-list.
func (s *Service) RefreshIndices(ctx context.Context) error {
	snapshot, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.idxGen++
	gen := s.idxGen
	s.mu.Unlock()

	var indices []models.IndexQuote
	if len(snapshot.Indices) > 0 {
		raws, err := s.client.FetchIndexQuotes(ctx, snapshot.Indices)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Index quote fetch failed - keeping previous quotes")
			return err
		}
		indices = make([]models.IndexQuote, 0, len(raws))
		for _, raw := range raws {
			indices = append(indices, valuation.NormalizeIndex(raw))
		}
	}

	s.mu.Lock()
	if gen == s.idxGen {
		s.indices = indices
	}
	s.mu.Unlock()
	return nil
}

// Dataset returns the published rows, totals and publish time.
func (s *Service) Dataset() ([]models.FundRow, models.PortfolioTotals, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]models.FundRow, len(s.rows))
	copy(rows, s.rows)
	return rows, s.totals, s.updatedAt
}

// Indices returns the published index quotes.
func (s *Service) Indices() []models.IndexQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indices := make([]models.IndexQuote, len(s.indices))
	copy(indices, s.indices)
	return indices
}

// Recompute rederives rows and totals from the cached quotes against
// the current positions, without a network fetch. Called after ledger
// edits so share and cost changes show immediately.
func (s *Service) Recompute(ctx context.Context) error {
	snapshot, err := s.ledger.Snapshot(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = valuation.RebuildRows(s.quotes, snapshot)
	s.totals = valuation.Aggregate(s.rows)
	return nil
}

// DropFund removes a fund's cached quote and row. The next full refresh
// would drop it anyway; doing it here makes removal instant.
func (s *Service) DropFund(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, q := range s.quotes {
		if q.Code == code {
			s.quotes = append(s.quotes[:i], s.quotes[i+1:]...)
			break
		}
	}
	for i, r := range s.rows {
		if r.Code == code {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			break
		}
	}
	s.totals = valuation.Aggregate(s.rows)
}

// SetLiveUpdate starts or stops the periodic refresh loop. Both
// directions are idempotent.
func (s *Service) SetLiveUpdate(enabled bool) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if enabled == (s.cancel != nil) {
		return
	}
	if enabled {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.run(ctx)
		s.logger.Info().Msg("Live update started")
	} else {
		s.cancel()
		s.cancel = nil
		s.logger.Info().Msg("Live update stopped")
	}
}

// run is the live-update loop. Funds refresh on a fixed cadence; the
// index timer speeds up while the market is trading.
func (s *Service) run(ctx context.Context) {
	fundTicker := time.NewTicker(s.fundInterval)
	defer fundTicker.Stop()
	indexTimer := time.NewTimer(s.indexDelay())
	defer indexTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fundTicker.C:
			s.tickFunds(ctx)
		case <-indexTimer.C:
			s.tickIndices(ctx)
			indexTimer.Reset(s.indexDelay())
		}
	}
}

func (s *Service) indexDelay() time.Duration {
	if s.calendar.Status() == models.MarketTrading {
		return s.fastIndexInterval
	}
	return s.fundInterval
}

// tickFunds runs one scheduled fund refresh. Ticks outside market hours
// are skipped, and a tick that lands while the previous fetch is still
// running is dropped rather than queued.
func (s *Service) tickFunds(ctx context.Context) {
	if !s.calendar.IsOpen() {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("Refresh tick dropped - fetch in flight")
		return
	}
	defer s.inFlight.Store(false)

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled refresh failed")
	}
}

func (s *Service) tickIndices(ctx context.Context) {
	if !s.calendar.IsOpen() {
		return
	}
	if err := s.RefreshIndices(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Scheduled index refresh failed")
	}
}
