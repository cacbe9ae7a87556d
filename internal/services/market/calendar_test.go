package market

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/models"
)

const holidayJSON = `{
  "version": "2024.1",
  "lastDate": "2024-12-31",
  "data": {
    "2024": {
      "05-01": {"holiday": true, "name": "劳动节"},
      "04-28": {"holiday": false, "name": "调休"}
    }
  }
}`

func newTestCalendar(t *testing.T, at time.Time) *Calendar {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holiday.json")
	require.NoError(t, os.WriteFile(path, []byte(holidayJSON), 0644))

	c := NewCalendar(path, common.NewSilentLogger())
	c.now = func() time.Time { return at }
	return c
}

func chinaTime(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, chinaLocation)
}

func TestIsOpen_TradingHours(t *testing.T) {
	// Wednesday 2024-05-08
	cases := []struct {
		hh, mm int
		open   bool
	}{
		{9, 29, false},
		{9, 30, true},
		{11, 0, true},
		{11, 35, true}, // gate stays open past session close
		{11, 36, false},
		{12, 30, false},
		{13, 0, true},
		{15, 5, true},
		{15, 6, false},
		{20, 0, false},
	}
	for _, tc := range cases {
		c := newTestCalendar(t, chinaTime(2024, 5, 8, tc.hh, tc.mm))
		assert.Equal(t, tc.open, c.IsOpen(), "at %02d:%02d", tc.hh, tc.mm)
	}
}

func TestIsOpen_Weekend(t *testing.T) {
	c := newTestCalendar(t, chinaTime(2024, 5, 11, 10, 0)) // Saturday
	assert.False(t, c.IsOpen())
}

func TestIsOpen_Holiday(t *testing.T) {
	c := newTestCalendar(t, chinaTime(2024, 5, 1, 10, 0)) // 劳动节, Wednesday
	assert.False(t, c.IsOpen())
}

func TestStatus(t *testing.T) {
	cases := []struct {
		hh, mm int
		status models.MarketStatus
	}{
		{10, 0, models.MarketTrading},
		{11, 30, models.MarketTrading},
		{11, 45, models.MarketLunch},
		{13, 0, models.MarketTrading},
		{15, 0, models.MarketTrading},
		{15, 1, models.MarketClosed},
		{8, 0, models.MarketClosed},
	}
	for _, tc := range cases {
		c := newTestCalendar(t, chinaTime(2024, 5, 8, tc.hh, tc.mm))
		assert.Equal(t, tc.status, c.Status(), "at %02d:%02d", tc.hh, tc.mm)
	}
}

func TestMissingHolidayFile_WeekendsOnly(t *testing.T) {
	c := NewCalendar(filepath.Join(t.TempDir(), "missing.json"), common.NewSilentLogger())
	c.now = func() time.Time { return chinaTime(2024, 5, 1, 10, 0) }

	// Without the holiday table a weekday holiday looks like a
	// trading day. Degraded, not broken.
	assert.True(t, c.IsOpen())
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holiday.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1","data":{}}`), 0644))

	c := NewCalendar(path, common.NewSilentLogger())
	c.now = func() time.Time { return chinaTime(2024, 5, 1, 10, 0) }
	assert.True(t, c.IsOpen())

	require.NoError(t, os.WriteFile(path, []byte(holidayJSON), 0644))
	require.NoError(t, c.Reload())
	assert.False(t, c.IsOpen())
}
