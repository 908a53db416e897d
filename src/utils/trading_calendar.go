package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers market-hours questions using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// suffixToMIC maps exchange suffixes to MIC codes (ISO 10383).
// See scmhub/calendar for supported MICs.
var suffixToMIC = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".BR": "xbru",
	".MI": "xmil",
	".MC": "xmad",
	".ST": "xsto",
	".CO": "xcse",
	".HE": "xhel",
	".VI": "xwbo",
	".SW": "xswx",
	".TO": "xtse",
	".V":  "xtsx",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".KS": "xkrx",
	".TW": "xtai",
	".SS": "xshg",
	".SZ": "xshe",
}

// -----------------------------------------------------------------------------

func GetCalendar(symbol string) *TradingCalendar {
	mic := "xnys" // Default US NYSE
	for suffix, code := range suffixToMIC {
		if strings.HasSuffix(symbol, suffix) {
			mic = code
			break
		}
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		// Fallback to xnys if not found
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 NY).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC // Worst case
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 NY Time
		if (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16 {
			return true
		}
		return false
	}

	return tc.Calendar.IsOpen(t)
}
