package valuation

import (
	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/models"
)

// HoldingAmount is the market value of the held shares at the confirmed
// NAV, 0 when either operand is absent or zero.
func HoldingAmount(nav *float64, shares float64) float64 {
	if nav == nil || *nav == 0 || shares == 0 {
		return 0
	}
	return common.Round2(*nav * shares)
}

// DailyGain is today's mark-to-market P&L for the held shares.
//
// Before the confirmed NAV lands, the gain is the plain estimate-vs-
// last-confirmed delta. Once confirmed, the estimate has been
// overwritten with the NAV itself, so the prior-day reference is backed
// out of the published change percent instead: prior = nav/(1+pct/100).
// A change percent at or below -100 has no meaningful prior value and
// yields 0 rather than a division blow-up.
func DailyGain(quote models.FundQuote, shares float64) float64 {
	if shares == 0 {
		return 0
	}

	if quote.Confirmed && quote.Nav != nil {
		if quote.ChangePct <= -100 {
			return 0
		}
		prior := *quote.Nav / (1 + quote.ChangePct/100)
		return common.Round2((*quote.Nav - prior) * shares)
	}

	if quote.Estimate != nil && quote.Nav != nil {
		return common.Round2((*quote.Estimate - *quote.Nav) * shares)
	}

	return 0
}

// CostGain is the unrealized gain over the recorded cost basis, 0 when
// NAV, cost or shares is absent.
func CostGain(nav *float64, cost *float64, shares float64) float64 {
	if nav == nil || *nav == 0 || cost == nil || *cost == 0 || shares == 0 {
		return 0
	}
	return common.Round2((*nav - *cost) * shares)
}

// CostGainRate is the unrealized gain as a percentage of cost basis,
// 0 when NAV or cost is absent.
func CostGainRate(nav *float64, cost *float64) float64 {
	if nav == nil || *nav == 0 || cost == nil || *cost == 0 {
		return 0
	}
	return common.Round2((*nav - *cost) / *cost * 100)
}

// BuildRow joins a normalized quote with a position and derives all
// metrics. A nil position means "quote without a tracked holding" and
// produces zero metrics.
func BuildRow(quote models.FundQuote, position *models.Position) models.FundRow {
	var shares float64
	var cost *float64
	if position != nil {
		shares = position.Shares
		cost = position.Cost
	}

	return models.FundRow{
		FundQuote:    quote,
		Shares:       shares,
		Cost:         cost,
		Amount:       HoldingAmount(quote.Nav, shares),
		DailyGain:    DailyGain(quote, shares),
		CostGain:     CostGain(quote.Nav, cost, shares),
		CostGainRate: CostGainRate(quote.Nav, cost),
	}
}

// BuildRows normalizes a batch of raw quotes and joins each against the
// snapshot's positions, preserving provider order. Codes the provider
// did not return simply produce no row.
func BuildRows(raws []models.RawFundQuote, snapshot *models.Snapshot) []models.FundRow {
	rows := make([]models.FundRow, 0, len(raws))
	for _, raw := range raws {
		quote := Normalize(raw)
		position, _ := snapshot.FindFund(quote.Code)
		rows = append(rows, BuildRow(quote, position))
	}
	return rows
}

// RebuildRows rederives metrics for cached normalized quotes against
// the current positions. Used after a ledger edit, when no fresh fetch
// is needed.
func RebuildRows(quotes []models.FundQuote, snapshot *models.Snapshot) []models.FundRow {
	rows := make([]models.FundRow, 0, len(quotes))
	for _, quote := range quotes {
		position, _ := snapshot.FindFund(quote.Code)
		rows = append(rows, BuildRow(quote, position))
	}
	return rows
}
