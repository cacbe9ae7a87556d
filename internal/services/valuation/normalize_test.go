package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanwei/fundwatch/internal/models"
)

func estimateQuote() models.RawFundQuote {
	return models.RawFundQuote{
		Code:            "000001",
		Name:            "华夏成长混合",
		NavDate:         "2024-05-09",
		Nav:             "1.2500",
		Estimate:        "1.2480",
		EstimateChgPct:  "-0.16",
		EstimateTime:    "2024-05-10 14:32:00",
		ConfirmedChgPct: "0.80",
	}
}

func TestNormalize_EstimateActive(t *testing.T) {
	q := Normalize(estimateQuote())

	assert.False(t, q.Confirmed, "stale NAV date must not supersede the estimate")
	require.NotNil(t, q.Nav)
	require.NotNil(t, q.Estimate)
	assert.Equal(t, 1.25, *q.Nav)
	assert.Equal(t, 1.248, *q.Estimate)
	assert.Equal(t, -0.16, q.ChangePct)
}

func TestNormalize_ConfirmedSupersedesEstimate(t *testing.T) {
	raw := estimateQuote()
	raw.NavDate = "2024-05-10" // same day as the estimate timestamp

	q := Normalize(raw)

	assert.True(t, q.Confirmed)
	require.NotNil(t, q.Estimate)
	assert.Equal(t, *q.Nav, *q.Estimate, "estimate must be overwritten by the confirmed NAV")
	assert.Equal(t, 0.80, q.ChangePct, "change percent must switch to the confirmed rate")
}

func TestNormalize_NoNavDateSentinel(t *testing.T) {
	raw := estimateQuote()
	raw.NavDate = models.NoDate
	raw.Nav = "--"

	q := Normalize(raw)

	assert.False(t, q.Confirmed)
	assert.Nil(t, q.Nav, "placeholder NAV parses to nil, not zero")
	assert.Equal(t, models.NoDate, q.NavDate)
}

func TestNormalize_MalformedFieldsBecomeAbsent(t *testing.T) {
	raw := estimateQuote()
	raw.Nav = "n/a"
	raw.Estimate = ""
	raw.EstimateChgPct = "--"

	q := Normalize(raw)

	assert.Nil(t, q.Nav)
	assert.Nil(t, q.Estimate)
	assert.Equal(t, 0.0, q.ChangePct, "malformed change percent defaults to 0")
}

func TestNormalize_ConfirmedRateMalformedDefaultsZero(t *testing.T) {
	raw := estimateQuote()
	raw.NavDate = "2024-05-10"
	raw.ConfirmedChgPct = "--"

	q := Normalize(raw)

	assert.True(t, q.Confirmed)
	assert.Equal(t, 0.0, q.ChangePct)
}

func TestNormalize_ShortEstimateTime(t *testing.T) {
	raw := estimateQuote()
	raw.NavDate = "2024-05-10"
	raw.EstimateTime = "--"

	q := Normalize(raw)
	assert.False(t, q.Confirmed)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := estimateQuote()
	raw.NavDate = "2024-05-10"

	first := Normalize(raw)
	second := Normalize(raw)
	assert.Equal(t, first, second)
}

func TestNormalize_EstimateCopyDoesNotAliasNav(t *testing.T) {
	raw := estimateQuote()
	raw.NavDate = "2024-05-10"

	q := Normalize(raw)
	require.NotNil(t, q.Estimate)
	*q.Estimate = 9.99
	assert.Equal(t, 1.25, *q.Nav, "mutating the estimate must not touch the NAV")
}

func TestNormalizeIndex(t *testing.T) {
	q := NormalizeIndex(models.RawIndexQuote{
		Price:     3122.45,
		ChangePct: -0.42,
		Change:    -13.11,
		Code:      "000001",
		Market:    1,
		Name:      "上证指数",
	})

	assert.Equal(t, "1.000001", q.Code)
	assert.Equal(t, 3122.45, q.Price)
	assert.Equal(t, -0.42, q.ChangePct)
}
