package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/models"
)

// --- Mocks ---

type memStore struct {
	snapshot *models.Snapshot
	settings *models.Settings
	saves    int
}

func (m *memStore) LoadSnapshot(_ context.Context) (*models.Snapshot, error) {
	if m.snapshot == nil {
		return models.NewSnapshot(), nil
	}
	// Copy so mutations only land through SaveSnapshot.
	snap := *m.snapshot
	snap.Funds = append([]models.Position(nil), m.snapshot.Funds...)
	snap.Indices = append([]string(nil), m.snapshot.Indices...)
	return &snap, nil
}

func (m *memStore) SaveSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	m.snapshot = snapshot
	m.saves++
	return nil
}

func (m *memStore) LoadSettings(_ context.Context) (*models.Settings, error) {
	if m.settings == nil {
		return models.NewDefaultSettings(), nil
	}
	return m.settings, nil
}

func (m *memStore) SaveSettings(_ context.Context, settings *models.Settings) error {
	m.settings = settings
	return nil
}

func newTestService() (*Service, *memStore) {
	store := &memStore{}
	return NewService(store, common.NewSilentLogger()), store
}

func fptr(v float64) *float64 { return &v }

// --- Tests ---

func TestAdd_Idempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.Add(ctx, "000001"))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Funds, 1)
	assert.Equal(t, 0.0, snap.Funds[0].Shares)
	assert.Nil(t, snap.Funds[0].Cost)
}

func TestAddMany_PreservesOrderSkipsExisting(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "110022"))
	require.NoError(t, svc.AddMany(ctx, []string{"000001", "110022", "161725"}))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"110022", "000001", "161725"}, snap.FundCodes())
}

func TestRemove(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.Remove(ctx, "000001"))
	assert.ErrorIs(t, svc.Remove(ctx, "000001"), ErrUnknownFund)

	snap, _ := svc.Snapshot(ctx)
	assert.Empty(t, snap.Funds)
}

func TestSetShares_ZeroClearsCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.SetShares(ctx, "000001", 100))
	require.NoError(t, svc.SetCost(ctx, "000001", fptr(1.5)))

	require.NoError(t, svc.SetShares(ctx, "000001", 0))

	snap, _ := svc.Snapshot(ctx)
	assert.Nil(t, snap.Funds[0].Cost, "zero shares must clear the cost basis")
}

func TestSetShares_RejectsNegative(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	assert.ErrorIs(t, svc.SetShares(ctx, "000001", -1), ErrInvalidShares)
}

func TestSetCost_ClearAndValidate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.SetShares(ctx, "000001", 100))
	require.NoError(t, svc.SetCost(ctx, "000001", fptr(1.23456)))

	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, 1.2346, *snap.Funds[0].Cost, "cost rounds to 4 decimals")

	require.NoError(t, svc.SetCost(ctx, "000001", nil))
	snap, _ = svc.Snapshot(ctx)
	assert.Nil(t, snap.Funds[0].Cost)

	assert.ErrorIs(t, svc.SetCost(ctx, "000001", fptr(0)), ErrInvalidCost)
	assert.ErrorIs(t, svc.SetCost(ctx, "000001", fptr(-1)), ErrInvalidCost)
}

func TestAdjust_BuyWeightedAverage(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.SetShares(ctx, "000001", 100))
	require.NoError(t, svc.SetCost(ctx, "000001", fptr(1.50)))

	// Holding 100 @ 1.50, buy 50 @ 2.00 -> 150 shares @ (1.5*100+2*50)/150 = 1.6667
	require.NoError(t, svc.Adjust(ctx, "000001", interfaces.AdjustAdd, 50, fptr(2.00)))

	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, 150.0, snap.Funds[0].Shares)
	require.NotNil(t, snap.Funds[0].Cost)
	assert.Equal(t, 1.6667, *snap.Funds[0].Cost)
}

func TestAdjust_FirstBuySetsCostDirectly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.Adjust(ctx, "000001", interfaces.AdjustAdd, 200, fptr(1.25)))

	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, 200.0, snap.Funds[0].Shares)
	assert.Equal(t, 1.25, *snap.Funds[0].Cost)
}

func TestAdjust_BuyWithoutPriceKeepsCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.SetShares(ctx, "000001", 100))
	require.NoError(t, svc.SetCost(ctx, "000001", fptr(1.50)))

	require.NoError(t, svc.Adjust(ctx, "000001", interfaces.AdjustAdd, 50, nil))

	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, 150.0, snap.Funds[0].Shares)
	assert.Equal(t, 1.50, *snap.Funds[0].Cost)
}

func TestAdjust_SellClampsAtZeroAndClearsCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.SetShares(ctx, "000001", 100))
	require.NoError(t, svc.SetCost(ctx, "000001", fptr(1.50)))

	// Sell more than held, with an entered price: clamps to 0 and the
	// cost is cleared regardless of the price.
	require.NoError(t, svc.Adjust(ctx, "000001", interfaces.AdjustReduce, 500, fptr(1.80)))

	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, 0.0, snap.Funds[0].Shares)
	assert.Nil(t, snap.Funds[0].Cost, "selling to zero always clears cost")
}

func TestAdjust_SellPriceOverridesCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.SetShares(ctx, "000001", 100))
	require.NoError(t, svc.SetCost(ctx, "000001", fptr(1.50)))

	require.NoError(t, svc.Adjust(ctx, "000001", interfaces.AdjustReduce, 40, fptr(1.80)))

	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, 60.0, snap.Funds[0].Shares)
	assert.Equal(t, 1.80, *snap.Funds[0].Cost)
}

func TestAdjust_InvalidDeltaNoMutation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))
	require.NoError(t, svc.SetShares(ctx, "000001", 100))
	savesBefore := store.saves

	assert.ErrorIs(t, svc.Adjust(ctx, "000001", interfaces.AdjustAdd, 0, fptr(2.0)), ErrInvalidDelta)
	assert.ErrorIs(t, svc.Adjust(ctx, "000001", interfaces.AdjustAdd, -5, nil), ErrInvalidDelta)
	assert.ErrorIs(t, svc.Adjust(ctx, "000001", interfaces.AdjustReduce, 0, nil), ErrInvalidDelta)

	assert.Equal(t, savesBefore, store.saves, "rejected adjustments must not write")
	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, 100.0, snap.Funds[0].Shares)
}

func TestReorderFunds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.AddMany(ctx, []string{"a", "b", "c"}))
	require.NoError(t, svc.ReorderFunds(ctx, 0, 2))

	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, []string{"b", "c", "a"}, snap.FundCodes())

	require.NoError(t, svc.ReorderFunds(ctx, 2, 0))
	snap, _ = svc.Snapshot(ctx)
	assert.Equal(t, []string{"a", "b", "c"}, snap.FundCodes())

	assert.ErrorIs(t, svc.ReorderFunds(ctx, 0, 5), ErrBadReorder)
}

func TestIndexWatchList(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	snap, _ := svc.Snapshot(ctx)
	require.Len(t, snap.Indices, 4, "default indices on first run")

	require.NoError(t, svc.AddIndex(ctx, "1.000688"))
	require.NoError(t, svc.AddIndex(ctx, "1.000688")) // idempotent
	require.NoError(t, svc.AddIndex(ctx, "100.HSI"))
	assert.ErrorIs(t, svc.AddIndex(ctx, "100.NDX"), ErrIndexLimit)

	require.NoError(t, svc.RemoveIndex(ctx, "100.HSI"))
	require.NoError(t, svc.RemoveIndex(ctx, "100.HSI")) // absent is a no-op

	snap, _ = svc.Snapshot(ctx)
	assert.Len(t, snap.Indices, 5)
}

func TestImport_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "000001"))

	bad := []*models.Snapshot{
		nil,
		{Funds: []models.Position{{Code: ""}}},
		{Funds: []models.Position{{Code: "a"}, {Code: "a"}}},
		{Funds: []models.Position{{Code: "a", Shares: -1}}},
		{Funds: []models.Position{{Code: "a", Shares: 10, Cost: fptr(-2)}}},
		{Funds: []models.Position{{Code: "a", Shares: 0, Cost: fptr(1.5)}}},
		{Indices: []string{"1", "2", "3", "4", "5", "6", "7"}},
	}
	for _, snap := range bad {
		assert.ErrorIs(t, svc.Import(ctx, snap), ErrInvalidImport)
	}

	// The pre-import state survives every rejection.
	snap, _ := svc.Snapshot(ctx)
	assert.Equal(t, []string{"000001"}, snap.FundCodes())
}

func TestImportExport_RoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := &models.Snapshot{
		Funds: []models.Position{
			{Code: "000001", Shares: 1000, Cost: fptr(1.2)},
			{Code: "110022", Shares: 0},
		},
		Indices: []string{"1.000001", "0.399006"},
	}
	require.NoError(t, svc.Import(ctx, in))

	out, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
