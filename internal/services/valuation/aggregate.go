package valuation

import (
	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/models"
)

// Aggregate folds per-fund metrics into portfolio totals.
//
// The cost gain rate is NOT a weighted average of per-fund rates. Since
// amount = shares*nav and costGain = (nav-cost)*shares, the difference
// amount-costGain equals cost*shares, the aggregate cost basis, and the
// rate is costGain over that inferred basis. A denominator of zero or
// less (nothing held at cost) yields 0.
func Aggregate(rows []models.FundRow) models.PortfolioTotals {
	var amount, dailyGain, costGain float64
	for _, row := range rows {
		amount += row.Amount
		dailyGain += row.DailyGain
		costGain += row.CostGain
	}

	totals := models.PortfolioTotals{
		Amount:    common.Round2(amount),
		DailyGain: common.Round2(dailyGain),
		CostGain:  common.Round2(costGain),
	}

	if amount != 0 {
		totals.DailyGainRate = common.Round2(dailyGain * 100 / amount)
	}

	if costBase := amount - costGain; costBase > 0 {
		totals.CostGainRate = common.Round2(costGain * 100 / costBase)
	}

	return totals
}
