// Package valuation converts raw provider quotes and held positions
// into presentable financial metrics. Everything in this package is a
// pure function: malformed provider fields become absent values, never
// errors, and absent values contribute zero downstream.
package valuation

import (
	"fmt"
	"time"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/models"
)

// supersededByNav reports whether the confirmed NAV dated navDate covers
// the same trading day as the estimate timestamp, i.e. the official
// value for "today" has been published and replaces the estimate.
// Both sides are compared as calendar dates; if either fails to parse
// the raw 10-char date prefixes are compared verbatim, which is what
// the provider contract guarantees. The comparison carries no timezone
// normalization; both strings come from the provider's clock.
func supersededByNav(navDate, estimateTime string) bool {
	if navDate == "" || navDate == models.NoDate || len(estimateTime) < 10 {
		return false
	}
	estimateDay := estimateTime[:10]

	nd, errN := time.Parse("2006-01-02", navDate)
	ed, errE := time.Parse("2006-01-02", estimateDay)
	if errN == nil && errE == nil {
		return nd.Equal(ed)
	}
	return navDate == estimateDay
}

// Normalize converts one raw provider record into its typed, null-safe
// form. It is stateless and re-evaluated on every refresh cycle: the
// provider may take a variable time after close to publish the
// confirmed NAV, so supersession is never sticky.
func Normalize(raw models.RawFundQuote) models.FundQuote {
	nav := common.ParseProviderFloat(raw.Nav)
	estimate := common.ParseProviderFloat(raw.Estimate)
	changePct := common.ParseProviderFloatOrZero(raw.EstimateChgPct)

	navDate := raw.NavDate
	if navDate == "" {
		navDate = models.NoDate
	}

	confirmed := supersededByNav(raw.NavDate, raw.EstimateTime)
	if confirmed {
		estimate = copyValue(nav)
		changePct = common.ParseProviderFloatOrZero(raw.ConfirmedChgPct)
	}

	return models.FundQuote{
		Code:         raw.Code,
		Name:         raw.Name,
		NavDate:      navDate,
		Nav:          nav,
		Estimate:     estimate,
		ChangePct:    changePct,
		EstimateTime: raw.EstimateTime,
		Confirmed:    confirmed,
	}
}

// NormalizeIndex converts one raw index record. The provider splits the
// market prefix off the code; the prefixed form ("1.000001") is what
// the watch-list stores and refetches.
func NormalizeIndex(raw models.RawIndexQuote) models.IndexQuote {
	return models.IndexQuote{
		Code:      fmt.Sprintf("%d.%s", raw.Market, raw.Code),
		Name:      raw.Name,
		Price:     raw.Price,
		Change:    raw.Change,
		ChangePct: raw.ChangePct,
	}
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
