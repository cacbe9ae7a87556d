package models

// RawIndexQuote is one record from the provider's index/stock quote
// endpoint. The provider names fields f2..f14.
type RawIndexQuote struct {
	Price     float64 `json:"f2"`  // last price
	ChangePct float64 `json:"f3"`  // change percent
	Change    float64 `json:"f4"`  // change amount
	Code      string  `json:"f12"` // security code
	Market    int     `json:"f13"` // 1 = Shanghai, 0 = Shenzhen
	Name      string  `json:"f14"`
}

// IndexQuote is the normalized index row shown in the dashboard header.
// Code carries the market prefix ("1.000001") so it can be refetched.
type IndexQuote struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
}
