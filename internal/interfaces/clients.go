// Package interfaces defines the service, client and storage contracts
// shared across fundwatch packages.
package interfaces

import (
	"context"

	"github.com/yanwei/fundwatch/internal/models"
)

// FundClient is the external fund-data provider. Batched calls may
// return fewer records than requested; missing codes simply produce no
// row. Implementations must short-circuit empty code lists without a
// network call.
type FundClient interface {
	FetchFundQuotes(ctx context.Context, codes []string) ([]models.RawFundQuote, error)
	FetchIndexQuotes(ctx context.Context, codes []string) ([]models.RawIndexQuote, error)
	SearchFunds(ctx context.Context, keyword string) ([]models.FundSearchResult, error)
	FetchFundInfo(ctx context.Context, code string) (*models.FundInfo, error)
	FetchFundHistory(ctx context.Context, code string, days int) ([]models.NavPoint, error)
	FetchEstimateTrend(ctx context.Context, code string) ([]models.TrendPoint, error)
}
