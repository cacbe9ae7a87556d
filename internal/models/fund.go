// Package models defines the core data structures for fundwatch
package models

// NoDate is the provider sentinel for "no confirmed NAV date published".
const NoDate = "--"

// RawFundQuote is one record from the provider's batched fund quote
// endpoint. All fields arrive as strings; numeric fields may carry
// placeholders ("--") instead of numbers.
type RawFundQuote struct {
	Code            string `json:"FCODE"`
	Name            string `json:"SHORTNAME"`
	NavDate         string `json:"PDATE"`    // date of the confirmed NAV, or "--"
	Nav             string `json:"NAV"`      // confirmed unit NAV
	Estimate        string `json:"GSZ"`      // intraday estimated NAV
	EstimateChgPct  string `json:"GSZZL"`    // estimated change percent
	EstimateTime    string `json:"GZTIME"`   // estimate timestamp "2006-01-02 15:04"
	ConfirmedChgPct string `json:"NAVCHGRT"` // confirmed change rate
}

// FundQuote is the normalized, null-safe form of a RawFundQuote.
// Once the confirmed NAV for the estimate's trading day is published,
// Confirmed is true, Estimate equals Nav and ChangePct is the confirmed
// change rate.
type FundQuote struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	NavDate      string   `json:"navDate"`
	Nav          *float64 `json:"nav"`
	Estimate     *float64 `json:"estimate"`
	ChangePct    float64  `json:"changePct"`
	EstimateTime string   `json:"estimateTime"`
	Confirmed    bool     `json:"confirmed"`
}

// FundRow is one displayed dataset row: a normalized quote joined with
// the user's position and the derived metrics. Metrics default to 0
// whenever an input is absent; they are never null.
type FundRow struct {
	FundQuote
	Shares       float64  `json:"shares"`
	Cost         *float64 `json:"cost,omitempty"`
	Amount       float64  `json:"amount"`
	DailyGain    float64  `json:"dailyGain"`
	CostGain     float64  `json:"costGain"`
	CostGainRate float64  `json:"costGainRate"`
}

// PortfolioTotals aggregates FundRow metrics across the whole list.
type PortfolioTotals struct {
	Amount        float64 `json:"amount"`
	DailyGain     float64 `json:"dailyGain"`
	DailyGainRate float64 `json:"dailyGainRate"`
	CostGain      float64 `json:"costGain"`
	CostGainRate  float64 `json:"costGainRate"`
}

// FundInfo is the provider's fund profile record, passed through to the
// dashboard untouched.
type FundInfo struct {
	Code       string `json:"FCODE"`
	Name       string `json:"SHORTNAME"`
	Type       string `json:"FTYPE"`
	Company    string `json:"JJGS"`
	Manager    string `json:"JJJL"`
	Nav        string `json:"DWJZ"`
	NavTotal   string `json:"LJJZ"`
	NavDate    string `json:"FSRQ"`
	Size       string `json:"ENDNAV"`
	BuyStatus  string `json:"SGZT"`
	SellStatus string `json:"SHZT"`
	ReturnM    string `json:"SYL_Y"`
	Return3M   string `json:"SYL_3Y"`
	Return6M   string `json:"SYL_6Y"`
	Return1Y   string `json:"SYL_1N"`
}

// FundSearchResult is one match from the provider's fund search.
type FundSearchResult struct {
	Code string `json:"CODE"`
	Name string `json:"NAME"`
	Type string `json:"type,omitempty"`
}

// NavPoint is one (date, value) sample of a fund's NAV history.
type NavPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrendPoint is one intraday estimate sample.
type TrendPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}
