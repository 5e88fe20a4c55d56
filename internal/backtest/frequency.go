package backtest

import (
	"fmt"
	"time"
)

// Frequency is the backtest sampling interval.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency validates a frequency string from flags or config.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown frequency %q (want daily, weekly or monthly)", s)
	}
}

// Next returns the following grid date. Monthly steps land on the same
// day-of-month where it exists and roll forward per time.AddDate rules
// otherwise.
func (f Frequency) Next(date time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return date.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return date.AddDate(0, 0, 7)
	default:
		return date.AddDate(0, 1, 0)
	}
}

// Grid materializes the date sequence, strictly increasing, inclusive of
// start and of end when end falls on the grid.
func (f Frequency) Grid(start, end time.Time) []time.Time {
	dates := make([]time.Time, 0)
	for d := start; !d.After(end); d = f.Next(d) {
		dates = append(dates, d)
	}
	return dates
}
