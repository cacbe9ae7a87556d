package models

// HolidayEntry marks one calendar day in the holiday file. Days around
// public holidays may appear with Holiday=false (compensating workdays).
type HolidayEntry struct {
	Holiday bool   `json:"holiday"`
	Name    string `json:"name"`
}

// HolidayCalendar is the published exchange holiday table:
// year -> "MM-DD" -> entry.
type HolidayCalendar struct {
	Version  string                             `json:"version"`
	LastDate string                             `json:"lastDate"`
	Data     map[string]map[string]HolidayEntry `json:"data"`
}

// MarketStatus describes the current session phase.
type MarketStatus string

const (
	MarketTrading MarketStatus = "trading"
	MarketLunch   MarketStatus = "lunch"
	MarketClosed  MarketStatus = "closed"
)
