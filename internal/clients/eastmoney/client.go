// Package eastmoney provides a client for the eastmoney fund and
// market-quote APIs.
package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/models"
)

const (
	DefaultFundBaseURL   = "https://fundmobapi.eastmoney.com"
	DefaultIndexBaseURL  = "https://push2.eastmoney.com"
	DefaultSearchBaseURL = "https://fundsuggest.eastmoney.com"
	DefaultTimeout       = 15 * time.Second
	DefaultRateLimit     = 5 // requests per second

	// quoteBatchSize caps a single FundMNFInfo request. The provider
	// truncates silently above this, so larger code lists are chunked.
	quoteBatchSize = 200

	userAgent = "EMProjJijin/6.2.8 (iPhone; iOS 13.6; Scale/2.00)"
)

// trendLocation renders intraday estimate timestamps in exchange time.
var trendLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}()

// Client implements the FundClient interface against the eastmoney
// mobile fund API.
type Client struct {
	fundBaseURL   string
	indexBaseURL  string
	searchBaseURL string
	deviceID      string
	httpClient    *http.Client
	logger        *common.Logger
	limiter       *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithFundBaseURL sets the fund API base URL
func WithFundBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.fundBaseURL = baseURL
	}
}

// WithIndexBaseURL sets the index quote API base URL
func WithIndexBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.indexBaseURL = baseURL
	}
}

// WithSearchBaseURL sets the fund search API base URL
func WithSearchBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.searchBaseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new eastmoney client. Each client carries a
// random device ID, which the mobile API requires on every call.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		fundBaseURL:   DefaultFundBaseURL,
		indexBaseURL:  DefaultIndexBaseURL,
		searchBaseURL: DefaultSearchBaseURL,
		deviceID:      uuid.NewString(),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a provider error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eastmoney API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request and decodes the JSON body.
func (c *Client) get(ctx context.Context, baseURL, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}

	reqURL := fmt.Sprintf("%s%s?%s", baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("url", baseURL+path).Msg("eastmoney API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// fundParams returns the boilerplate query the mobile fund API expects.
func (c *Client) fundParams() url.Values {
	params := url.Values{}
	params.Set("plat", "Android")
	params.Set("appType", "ttjj")
	params.Set("product", "EFund")
	params.Set("Version", "1")
	params.Set("deviceid", c.deviceID)
	return params
}

// fundEnvelope wraps every mobile fund API response.
type fundEnvelope struct {
	Datas   json.RawMessage `json:"Datas"`
	ErrCode int             `json:"ErrCode"`
	ErrMsg  string          `json:"ErrMsg"`
	Success bool            `json:"Success"`
}

// getFund performs a fund API call and unwraps the envelope into datas.
func (c *Client) getFund(ctx context.Context, path string, params url.Values, datas interface{}) error {
	var envelope fundEnvelope
	if err := c.get(ctx, c.fundBaseURL, path, params, &envelope); err != nil {
		return err
	}

	if envelope.ErrCode != 0 {
		return &APIError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("ErrCode %d: %s", envelope.ErrCode, envelope.ErrMsg),
			Endpoint:   path,
		}
	}

	if len(envelope.Datas) == 0 || string(envelope.Datas) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Datas, datas); err != nil {
		return fmt.Errorf("failed to decode Datas: %w", err)
	}
	return nil
}

// FetchFundQuotes retrieves batched fund quotes. An empty code list
// returns an empty result without touching the network.
func (c *Client) FetchFundQuotes(ctx context.Context, codes []string) ([]models.RawFundQuote, error) {
	if len(codes) == 0 {
		return []models.RawFundQuote{}, nil
	}

	quotes := make([]models.RawFundQuote, 0, len(codes))
	for start := 0; start < len(codes); start += quoteBatchSize {
		end := start + quoteBatchSize
		if end > len(codes) {
			end = len(codes)
		}

		params := c.fundParams()
		params.Set("pageIndex", "1")
		params.Set("pageSize", strconv.Itoa(quoteBatchSize))
		params.Set("Fcodes", strings.Join(codes[start:end], ","))

		var batch []models.RawFundQuote
		if err := c.getFund(ctx, "/FundMNewApi/FundMNFInfo", params, &batch); err != nil {
			return nil, err
		}
		quotes = append(quotes, batch...)
	}

	c.logger.Debug().Int("requested", len(codes)).Int("returned", len(quotes)).Msg("Fund quotes fetched")
	return quotes, nil
}

// indexEnvelope wraps the push2 quote response.
type indexEnvelope struct {
	Data struct {
		Diff []models.RawIndexQuote `json:"diff"`
	} `json:"data"`
}

// FetchIndexQuotes retrieves index quotes for market-prefixed codes
// such as "1.000001". An empty code list skips the network call.
func (c *Client) FetchIndexQuotes(ctx context.Context, codes []string) ([]models.RawIndexQuote, error) {
	if len(codes) == 0 {
		return []models.RawIndexQuote{}, nil
	}

	params := url.Values{}
	params.Set("fltt", "2")
	params.Set("fields", "f2,f3,f4,f12,f13,f14")
	params.Set("secids", strings.Join(codes, ","))

	var envelope indexEnvelope
	if err := c.get(ctx, c.indexBaseURL, "/api/qt/ulist.np/get", params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Diff, nil
}

// searchEnvelope wraps the fund suggest response.
type searchEnvelope struct {
	Datas []struct {
		Code         string `json:"CODE"`
		Name         string `json:"NAME"`
		FundBaseInfo struct {
			Type string `json:"FTYPE"`
		} `json:"FundBaseInfo"`
	} `json:"Datas"`
}

// SearchFunds looks up funds by code or name fragment.
func (c *Client) SearchFunds(ctx context.Context, keyword string) ([]models.FundSearchResult, error) {
	params := url.Values{}
	params.Set("m", "9")
	params.Set("key", keyword)

	var envelope searchEnvelope
	if err := c.get(ctx, c.searchBaseURL, "/FundSearch/api/FundSearchAPI.ashx", params, &envelope); err != nil {
		return nil, err
	}

	results := make([]models.FundSearchResult, len(envelope.Datas))
	for i, d := range envelope.Datas {
		results[i] = models.FundSearchResult{
			Code: d.Code,
			Name: d.Name,
			Type: d.FundBaseInfo.Type,
		}
	}
	return results, nil
}

// FetchFundInfo retrieves a fund's profile record.
func (c *Client) FetchFundInfo(ctx context.Context, code string) (*models.FundInfo, error) {
	params := c.fundParams()
	params.Set("FCODE", code)

	var info models.FundInfo
	if err := c.getFund(ctx, "/FundMNewApi/FundMNNBasicInformation", params, &info); err != nil {
		return nil, err
	}
	if info.Code == "" {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("fund %s not found", code),
			Endpoint:   "/FundMNewApi/FundMNNBasicInformation",
		}
	}
	return &info, nil
}

// navHistoryRecord is one row of the NAV history endpoint.
type navHistoryRecord struct {
	Date string `json:"FSRQ"`
	Nav  string `json:"DWJZ"`
}

// FetchFundHistory retrieves up to days of confirmed NAV history,
// oldest first. Rows with placeholder values are dropped.
func (c *Client) FetchFundHistory(ctx context.Context, code string, days int) ([]models.NavPoint, error) {
	if days <= 0 {
		days = 30
	}

	params := c.fundParams()
	params.Set("FCODE", code)
	params.Set("pageIndex", "1")
	params.Set("pageSize", strconv.Itoa(days))

	var records []navHistoryRecord
	if err := c.getFund(ctx, "/FundMNewApi/FundMNHisNetList", params, &records); err != nil {
		return nil, err
	}

	// The provider returns newest first.
	points := make([]models.NavPoint, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		v := common.ParseProviderFloat(records[i].Nav)
		if v == nil {
			continue
		}
		points = append(points, models.NavPoint{Date: records[i].Date, Value: *v})
	}
	return points, nil
}

// FetchEstimateTrend retrieves the intraday estimate curve. The
// provider encodes the curve as a JSON string of [epochMillis, value]
// pairs inside Datas.
func (c *Client) FetchEstimateTrend(ctx context.Context, code string) ([]models.TrendPoint, error) {
	params := c.fundParams()
	params.Set("FCODE", code)

	var encoded string
	if err := c.getFund(ctx, "/FundMNewApi/FundMNGZTrend", params, &encoded); err != nil {
		return nil, err
	}
	if encoded == "" {
		return []models.TrendPoint{}, nil
	}

	var pairs [][]float64
	if err := json.Unmarshal([]byte(encoded), &pairs); err != nil {
		return nil, fmt.Errorf("failed to decode trend data: %w", err)
	}

	points := make([]models.TrendPoint, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		ts := time.UnixMilli(int64(p[0])).In(trendLocation)
		points = append(points, models.TrendPoint{
			Time:  ts.Format("15:04"),
			Value: p[1],
		})
	}
	return points, nil
}

// Ensure Client implements FundClient
var _ interfaces.FundClient = (*Client)(nil)
