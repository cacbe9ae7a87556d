package models

// MaxIndices caps the index watch-list shown in the dashboard header.
const MaxIndices = 6

// DefaultIndices is the index watch-list for a fresh install.
var DefaultIndices = []string{"1.000001", "1.000300", "0.399001", "0.399006"}

// Position is one tracked fund: the identifying code, the held share
// count and the optional average cost per share. Shares 0 means
// "watched but not held"; Cost is nil when no cost is recorded and is
// always nil when Shares is 0.
type Position struct {
	Code   string   `json:"code"`
	Shares float64  `json:"shares"`
	Cost   *float64 `json:"cost,omitempty"`
}

// Snapshot is the persisted user state: the position list and the index
// watch-list. Quotes and derived metrics are ephemeral and excluded.
type Snapshot struct {
	Funds   []Position `json:"funds"`
	Indices []string   `json:"indices"`
}

// NewSnapshot returns the first-run snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Funds:   []Position{},
		Indices: append([]string(nil), DefaultIndices...),
	}
}

// FindFund returns the position for code and its list index, or -1.
func (s *Snapshot) FindFund(code string) (*Position, int) {
	for i := range s.Funds {
		if s.Funds[i].Code == code {
			return &s.Funds[i], i
		}
	}
	return nil, -1
}

// HasIndex reports whether code is already on the index watch-list.
func (s *Snapshot) HasIndex(code string) bool {
	for _, c := range s.Indices {
		if c == code {
			return true
		}
	}
	return false
}

// FundCodes returns the tracked fund codes in list order.
func (s *Snapshot) FundCodes() []string {
	codes := make([]string, 0, len(s.Funds))
	for _, f := range s.Funds {
		codes = append(codes, f.Code)
	}
	return codes
}

// SortSpec is the user's chosen dataset ordering.
type SortSpec struct {
	Field string `json:"field,omitempty"` // e.g. "changePct", "amount"
	Order string `json:"order,omitempty"` // "asc" or "desc"
}

// Settings holds the persisted dashboard preferences.
type Settings struct {
	ShowEstimate bool     `json:"showEstimate"`
	ShowAmount   bool     `json:"showAmount"`
	ShowGains    bool     `json:"showGains"`
	ShowCost     bool     `json:"showCost"`
	ShowCostRate bool     `json:"showCostRate"`
	DarkMode     bool     `json:"darkMode"`
	LiveUpdate   bool     `json:"liveUpdate"`
	Sort         SortSpec `json:"sort"`
}

// NewDefaultSettings returns the first-run settings.
func NewDefaultSettings() *Settings {
	return &Settings{
		ShowAmount: true,
		ShowGains:  true,
		LiveUpdate: true,
	}
}
