// Package daterange maps the dashboard's human-readable range labels to
// concrete start/end instants.
package daterange

import (
	"math"
	"time"

	"adpulse/internal/domain"
)

const (
	LabelToday       = "Today"
	LabelYesterday   = "Yesterday"
	LabelLast7Days   = "Last 7 days"
	LabelLast30Days  = "Last 30 days"
	LabelLast60Days  = "Last 60 days"
	LabelLast90Days  = "Last 90 days"
	LabelThisMonth   = "This Month"
	LabelLastMonth   = "Last Month"
	LabelThisQuarter = "This Quarter"
	LabelLastQuarter = "Last Quarter"
	LabelThisYear    = "This Year"
	LabelLastYear    = "Last Year"
	LabelCustom      = "Custom"
)

// Labels lists the fixed enumerated set, in display order.
func Labels() []string {
	return []string{
		LabelToday, LabelYesterday,
		LabelLast7Days, LabelLast30Days, LabelLast60Days, LabelLast90Days,
		LabelThisMonth, LabelLastMonth,
		LabelThisQuarter, LabelLastQuarter,
		LabelThisYear, LabelLastYear,
	}
}

// Resolve maps a range label to concrete boundaries. It is total: any
// unrecognized label yields Today's range. Start boundaries are
// 00:00:00.000 of the first day, end boundaries 23:59:59.999 of the
// final day.
func Resolve(label string, now time.Time) domain.DateRangeSelection {
	var start, end time.Time

	switch label {
	case LabelToday:
		start, end = startOfDay(now), endOfDay(now)
	case LabelYesterday:
		y := now.AddDate(0, 0, -1)
		start, end = startOfDay(y), endOfDay(y)
	case LabelLast7Days:
		start, end = startOfDay(now.AddDate(0, 0, -6)), endOfDay(now)
	case LabelLast30Days:
		start, end = startOfDay(now.AddDate(0, 0, -29)), endOfDay(now)
	case LabelLast60Days:
		start, end = startOfDay(now.AddDate(0, 0, -59)), endOfDay(now)
	case LabelLast90Days:
		start, end = startOfDay(now.AddDate(0, 0, -89)), endOfDay(now)
	case LabelThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = endOfDay(now)
	case LabelLastMonth:
		firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		start = firstOfThis.AddDate(0, -1, 0)
		end = endOfDay(firstOfThis.AddDate(0, 0, -1))
	case LabelThisQuarter:
		q := quarterIndex(now)
		start = quarterStart(now.Year(), q, now.Location())
		end = endOfDay(now)
	case LabelLastQuarter:
		q := quarterIndex(now)
		year := now.Year()
		if q == 0 {
			// wraps to quarter 3 of the previous year
			q, year = 3, year-1
		} else {
			q--
		}
		start = quarterStart(year, q, now.Location())
		end = endOfDay(start.AddDate(0, 3, 0).AddDate(0, 0, -1))
	case LabelThisYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end = endOfDay(now)
	case LabelLastYear:
		start = time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		end = endOfDay(time.Date(now.Year()-1, time.December, 31, 0, 0, 0, 0, now.Location()))
	default:
		start, end = startOfDay(now), endOfDay(now)
	}

	return domain.DateRangeSelection{
		Label:     label,
		StartDate: start,
		EndDate:   end,
		DayCount:  dayCount(start, end),
	}
}

// FormatDate renders a boundary for transmission to the upstream API.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// quarterIndex is floor(month/3) over zero-based months.
func quarterIndex(t time.Time) int {
	return (int(t.Month()) - 1) / 3
}

func quarterStart(year, q int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(q*3+1), 1, 0, 0, 0, 0, loc)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, t.Location())
}

func dayCount(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}
