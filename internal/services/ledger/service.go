// Package ledger manages the user's tracked funds: share counts, cost
// basis and the index watch-list. Every mutation is validated at this
// boundary, applied to the persisted snapshot and saved before the call
// returns; invalid input leaves the snapshot untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/models"
)

// Validation errors surfaced to the API layer as 400s.
var (
	ErrEmptyCode     = errors.New("fund code is empty")
	ErrUnknownFund   = errors.New("fund is not tracked")
	ErrInvalidShares = errors.New("shares must be a non-negative number")
	ErrInvalidCost   = errors.New("cost must be a positive number")
	ErrInvalidDelta  = errors.New("adjustment shares must be a positive number")
	ErrIndexLimit    = fmt.Errorf("index watch-list is limited to %d entries", models.MaxIndices)
	ErrInvalidImport = errors.New("import payload is malformed")
	ErrBadReorder    = errors.New("reorder positions out of range")
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService over a Store.
type Service struct {
	store  interfaces.Store
	logger *common.Logger

	// Serializes load-mutate-save cycles. Computation between commit
	// points is synchronous, so one mutex is all the coordination the
	// snapshot needs.
	mu sync.Mutex
}

// NewService creates a new ledger service.
func NewService(store interfaces.Store, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Snapshot returns the current persisted snapshot.
func (s *Service) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadSnapshot(ctx)
}

// mutate runs fn against the loaded snapshot and saves the result.
// If fn returns an error nothing is written.
func (s *Service) mutate(ctx context.Context, fn func(*models.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return s.store.SaveSnapshot(ctx, snap)
}

// Add inserts a new watched fund with zero shares and no cost. Adding a
// code that is already tracked is a silent no-op.
func (s *Service) Add(ctx context.Context, code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		if _, i := snap.FindFund(code); i >= 0 {
			return nil
		}
		snap.Funds = append(snap.Funds, models.Position{Code: code})
		s.logger.Info().Str("fund", code).Msg("Fund added")
		return nil
	})
}

// AddMany inserts each code not already present, preserving input order.
func (s *Service) AddMany(ctx context.Context, codes []string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		for _, code := range codes {
			if code == "" {
				continue
			}
			if _, i := snap.FindFund(code); i >= 0 {
				continue
			}
			snap.Funds = append(snap.Funds, models.Position{Code: code})
		}
		return nil
	})
}

// Remove deletes a tracked fund. The refresh layer drops its cached row
// separately; the ledger owns only the persisted state.
func (s *Service) Remove(ctx context.Context, code string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		_, i := snap.FindFund(code)
		if i < 0 {
			return ErrUnknownFund
		}
		snap.Funds = append(snap.Funds[:i], snap.Funds[i+1:]...)
		s.logger.Info().Str("fund", code).Msg("Fund removed")
		return nil
	})
}

// SetShares overwrites the held share count. Setting shares to 0 clears
// the cost basis; cost is meaningless with nothing held.
func (s *Service) SetShares(ctx context.Context, code string, shares float64) error {
	if shares < 0 || math.IsNaN(shares) || math.IsInf(shares, 0) {
		return ErrInvalidShares
	}
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		pos, i := snap.FindFund(code)
		if i < 0 {
			return ErrUnknownFund
		}
		pos.Shares = shares
		if shares == 0 {
			pos.Cost = nil
		}
		return nil
	})
}

// SetCost overwrites the cost basis; nil clears it.
func (s *Service) SetCost(ctx context.Context, code string, cost *float64) error {
	if cost != nil && (*cost <= 0 || math.IsNaN(*cost) || math.IsInf(*cost, 0)) {
		return ErrInvalidCost
	}
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		pos, i := snap.FindFund(code)
		if i < 0 {
			return ErrUnknownFund
		}
		if cost == nil {
			pos.Cost = nil
			return nil
		}
		c := common.Round4(*cost)
		pos.Cost = &c
		return nil
	})
}

// Adjust applies a buy (add) or sell (reduce) of deltaShares.
//
// Buys recompute the cost basis as the weighted average of the existing
// holding and the new lot when a price is entered; the first priced buy
// sets the cost directly. Sells clamp shares at zero, optionally
// overwrite the cost with the entered price, and always clear the cost
// when the holding reaches exactly zero. Cost math rounds to 4 decimals.
func (s *Service) Adjust(ctx context.Context, code string, mode interfaces.AdjustMode, deltaShares float64, price *float64) error {
	if deltaShares <= 0 || math.IsNaN(deltaShares) || math.IsInf(deltaShares, 0) {
		return ErrInvalidDelta
	}
	if price != nil && (math.IsNaN(*price) || math.IsInf(*price, 0)) {
		return ErrInvalidCost
	}

	return s.mutate(ctx, func(snap *models.Snapshot) error {
		pos, i := snap.FindFund(code)
		if i < 0 {
			return ErrUnknownFund
		}

		havePrice := price != nil && *price > 0

		switch mode {
		case interfaces.AdjustAdd:
			newShares := pos.Shares + deltaShares
			if havePrice {
				var newCost float64
				if pos.Shares > 0 && pos.Cost != nil && *pos.Cost > 0 {
					newCost = common.Round4((*pos.Cost*pos.Shares + *price*deltaShares) / newShares)
				} else {
					newCost = common.Round4(*price)
				}
				pos.Cost = &newCost
			}
			pos.Shares = newShares

		case interfaces.AdjustReduce:
			newShares := math.Max(pos.Shares-deltaShares, 0)
			if havePrice {
				newCost := common.Round4(*price)
				pos.Cost = &newCost
			}
			pos.Shares = newShares
			if newShares == 0 {
				pos.Cost = nil
			}

		default:
			return fmt.Errorf("unknown adjust mode %q", mode)
		}

		s.logger.Info().
			Str("fund", code).
			Str("mode", string(mode)).
			Float64("delta", deltaShares).
			Float64("shares", pos.Shares).
			Msg("Position adjusted")
		return nil
	})
}

// ReorderFunds moves the fund at index from to index to.
func (s *Service) ReorderFunds(ctx context.Context, from, to int) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		return reorder(snap.Funds, from, to)
	})
}

// AddIndex appends an index to the watch-list, capped at MaxIndices.
// Re-adding a watched index is a silent no-op.
func (s *Service) AddIndex(ctx context.Context, code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		if snap.HasIndex(code) {
			return nil
		}
		if len(snap.Indices) >= models.MaxIndices {
			return ErrIndexLimit
		}
		snap.Indices = append(snap.Indices, code)
		return nil
	})
}

// RemoveIndex removes an index from the watch-list.
func (s *Service) RemoveIndex(ctx context.Context, code string) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		for i, c := range snap.Indices {
			if c == code {
				snap.Indices = append(snap.Indices[:i], snap.Indices[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

// ReorderIndices moves the index at position from to position to.
func (s *Service) ReorderIndices(ctx context.Context, from, to int) error {
	return s.mutate(ctx, func(snap *models.Snapshot) error {
		return reorder(snap.Indices, from, to)
	})
}

// Export returns the snapshot for serialization. Quotes and metrics are
// ephemeral and never part of the export.
func (s *Service) Export(ctx context.Context) (*models.Snapshot, error) {
	return s.Snapshot(ctx)
}

// Import validates and applies a full snapshot atomically. A malformed
// payload is rejected and the existing state is left as-is.
func (s *Service) Import(ctx context.Context, snapshot *models.Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return err
	}
	s.logger.Info().Int("funds", len(snapshot.Funds)).Int("indices", len(snapshot.Indices)).Msg("Snapshot imported")
	return nil
}

// Settings returns the persisted dashboard settings.
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	return s.store.LoadSettings(ctx)
}

// SaveSettings persists the dashboard settings.
func (s *Service) SaveSettings(ctx context.Context, settings *models.Settings) error {
	return s.store.SaveSettings(ctx, settings)
}

func validateSnapshot(snapshot *models.Snapshot) error {
	if snapshot == nil {
		return ErrInvalidImport
	}
	if len(snapshot.Indices) > models.MaxIndices {
		return fmt.Errorf("%w: %v", ErrInvalidImport, ErrIndexLimit)
	}
	seen := make(map[string]bool, len(snapshot.Funds))
	for _, f := range snapshot.Funds {
		if f.Code == "" {
			return fmt.Errorf("%w: empty fund code", ErrInvalidImport)
		}
		if seen[f.Code] {
			return fmt.Errorf("%w: duplicate fund code %s", ErrInvalidImport, f.Code)
		}
		seen[f.Code] = true
		if f.Shares < 0 || math.IsNaN(f.Shares) || math.IsInf(f.Shares, 0) {
			return fmt.Errorf("%w: fund %s has invalid shares", ErrInvalidImport, f.Code)
		}
		if f.Cost != nil && (*f.Cost <= 0 || math.IsNaN(*f.Cost) || math.IsInf(*f.Cost, 0)) {
			return fmt.Errorf("%w: fund %s has invalid cost", ErrInvalidImport, f.Code)
		}
		if f.Shares == 0 && f.Cost != nil {
			return fmt.Errorf("%w: fund %s has a cost with zero shares", ErrInvalidImport, f.Code)
		}
	}
	for _, c := range snapshot.Indices {
		if c == "" {
			return fmt.Errorf("%w: empty index code", ErrInvalidImport)
		}
	}
	return nil
}

func reorder[T any](list []T, from, to int) error {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return ErrBadReorder
	}
	if from == to {
		return nil
	}
	moved := list[from]
	if from < to {
		copy(list[from:to], list[from+1:to+1])
	} else {
		copy(list[to+1:from+1], list[to:from])
	}
	list[to] = moved
	return nil
}
