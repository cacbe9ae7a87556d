// Package market provides the exchange trading-hours oracle used to
// gate scheduled quote refreshes.
package market

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/models"
)

// chinaLocation is the exchange timezone. Falls back to a fixed CST
// zone if tzdata is unavailable (e.g. minimal container).
var chinaLocation = mustLoadLocation("Asia/Shanghai")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// Session windows in minutes of day. The refresh gate stays open a few
// minutes past each session close so late estimate updates are caught;
// the displayed status uses the exact session bounds.
const (
	amOpen      = 9*60 + 30  // 09:30
	amClose     = 11*60 + 30 // 11:30
	amGateClose = 11*60 + 35 // 11:35
	pmOpen      = 13*60 + 0  // 13:00
	pmClose     = 15*60 + 0  // 15:00
	pmGateClose = 15*60 + 5  // 15:05
)

// Calendar implements MarketCalendar for the China A-share market:
// weekends and published exchange holidays are closed, trading runs
// 09:30-11:30 and 13:00-15:00 with a lunch break.
type Calendar struct {
	holidayFile string
	logger      *common.Logger
	now         func() time.Time // injectable clock for testing

	mu       sync.RWMutex
	holidays *models.HolidayCalendar

	cron *cron.Cron
}

// NewCalendar creates a Calendar and loads the holiday file. A missing
// or unreadable file degrades to weekend-only closure detection.
func NewCalendar(holidayFile string, logger *common.Logger) *Calendar {
	c := &Calendar{
		holidayFile: holidayFile,
		logger:      logger,
		now:         time.Now,
		holidays:    &models.HolidayCalendar{Data: map[string]map[string]models.HolidayEntry{}},
	}

	if err := c.Reload(); err != nil {
		logger.Warn().Err(err).Str("file", holidayFile).Msg("Holiday calendar unavailable - weekends only")
	}

	return c
}

// Reload re-reads the holiday file.
func (c *Calendar) Reload() error {
	data, err := os.ReadFile(c.holidayFile)
	if err != nil {
		return fmt.Errorf("failed to read holiday file: %w", err)
	}

	var cal models.HolidayCalendar
	if err := json.Unmarshal(data, &cal); err != nil {
		return fmt.Errorf("failed to parse holiday file: %w", err)
	}
	if cal.Data == nil {
		cal.Data = map[string]map[string]models.HolidayEntry{}
	}

	c.mu.Lock()
	c.holidays = &cal
	c.mu.Unlock()

	c.logger.Debug().Str("version", cal.Version).Msg("Holiday calendar loaded")
	return nil
}

// Start schedules a daily reload shortly after midnight exchange time,
// keeping the trading-day predicate current across date rollovers.
func (c *Calendar) Start() {
	if c.cron != nil {
		return
	}
	c.cron = cron.New(cron.WithLocation(chinaLocation))
	c.cron.AddFunc("5 0 * * *", func() {
		if err := c.Reload(); err != nil {
			c.logger.Warn().Err(err).Msg("Holiday calendar reload failed")
		}
	})
	c.cron.Start()
}

// Stop cancels the daily reload job.
func (c *Calendar) Stop() {
	if c.cron != nil {
		ctx := c.cron.Stop()
		<-ctx.Done()
		c.cron = nil
	}
}

// isHoliday reports whether the given exchange-local day is a published
// holiday.
func (c *Calendar) isHoliday(t time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	year := t.Format("2006")
	key := t.Format("01-02")
	if days, ok := c.holidays.Data[year]; ok {
		if entry, ok := days[key]; ok {
			return entry.Holiday
		}
	}
	return false
}

// IsTradingDay reports whether t falls on a trading day.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	local := t.In(chinaLocation)
	wd := local.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.isHoliday(local)
}

// IsOpen reports whether a scheduled refresh should proceed right now.
// The gate stays open slightly past each session close.
func (c *Calendar) IsOpen() bool {
	local := c.now().In(chinaLocation)
	if !c.IsTradingDay(local) {
		return false
	}

	hour, min, _ := local.Clock()
	m := hour*60 + min
	return (m >= amOpen && m <= amGateClose) || (m >= pmOpen && m <= pmGateClose)
}

// Status returns the display session phase using the exact exchange
// session bounds.
func (c *Calendar) Status() models.MarketStatus {
	local := c.now().In(chinaLocation)
	if !c.IsTradingDay(local) {
		return models.MarketClosed
	}

	hour, min, _ := local.Clock()
	m := hour*60 + min
	switch {
	case (m >= amOpen && m <= amClose) || (m >= pmOpen && m <= pmClose):
		return models.MarketTrading
	case m > amClose && m < pmOpen:
		return models.MarketLunch
	default:
		return models.MarketClosed
	}
}

// Ensure Calendar implements MarketCalendar
var _ interfaces.MarketCalendar = (*Calendar)(nil)
