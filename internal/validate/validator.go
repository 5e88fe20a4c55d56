package validate

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/macrolab/macindex/internal/composite"
)

// EventOutcome is the detection result for a single crisis event.
type EventOutcome struct {
	Name         string    `json:"name"`
	Start        time.Time `json:"start"`
	Severity     string    `json:"severity"`
	Detected     bool      `json:"detected"`
	LeadTimeDays int       `json:"lead_time_days"` // meaningful only when Detected
	WarningDate  time.Time `json:"warning_date,omitempty"`
}

// Metrics summarizes how well the series anticipated the labeled crises
// under the warning-window protocol.
type Metrics struct {
	WarningThreshold  float64        `json:"warning_threshold"`
	WarningWindowDays int            `json:"warning_window_days"`
	TotalEvents       int            `json:"total_events"`
	DetectedEvents    int            `json:"detected_events"`
	TruePositiveRate  float64        `json:"true_positive_rate"`
	MeanLeadTimeDays  float64        `json:"mean_lead_time_days"` // over detected events only
	WarningPoints     int            `json:"warning_points"`
	FalsePositives    int            `json:"false_positives"`
	FalsePositiveRate float64        `json:"false_positive_rate"`
	PerEvent          []EventOutcome `json:"per_event"`
}

// Validator scores a completed MAC series against the crisis event table.
type Validator struct {
	warningThreshold float64
	windowDays       int
}

// NewValidator creates a validator. A warning point is any series row
// with mac_score at or below the threshold.
func NewValidator(warningThreshold float64, windowDays int) (*Validator, error) {
	if warningThreshold < 0 || warningThreshold > 1 {
		return nil, fmt.Errorf("warning threshold %v outside [0,1]", warningThreshold)
	}
	if windowDays <= 0 {
		return nil, fmt.Errorf("warning window must be positive, got %d days", windowDays)
	}
	return &Validator{warningThreshold: warningThreshold, windowDays: windowDays}, nil
}

// Validate computes detection metrics. The series must be ordered by date;
// events only need their labeled start/end dates.
func (v *Validator) Validate(series []composite.Row, events []Event) Metrics {
	window := time.Duration(v.windowDays) * 24 * time.Hour

	m := Metrics{
		WarningThreshold:  v.warningThreshold,
		WarningWindowDays: v.windowDays,
		TotalEvents:       len(events),
		PerEvent:          make([]EventOutcome, 0, len(events)),
	}

	warnings := make([]composite.Row, 0)
	for _, row := range series {
		// Degraded rows carry a placeholder score, not a market signal.
		if row.Degraded {
			continue
		}
		if row.MACScore <= v.warningThreshold {
			warnings = append(warnings, row)
		}
	}
	m.WarningPoints = len(warnings)

	leadSum := 0
	for _, ev := range events {
		outcome := EventOutcome{Name: ev.Name, Start: ev.Start, Severity: ev.Severity}
		// Earliest qualifying warning wins the lead-time credit.
		for _, w := range warnings {
			if w.Date.Before(ev.Start.Add(-window)) || !w.Date.Before(ev.Start) {
				continue
			}
			outcome.Detected = true
			outcome.WarningDate = w.Date
			outcome.LeadTimeDays = int(ev.Start.Sub(w.Date) / (24 * time.Hour))
			break
		}
		if outcome.Detected {
			m.DetectedEvents++
			leadSum += outcome.LeadTimeDays
		}
		m.PerEvent = append(m.PerEvent, outcome)
	}

	for _, w := range warnings {
		if !v.covered(w.Date, events, window) {
			m.FalsePositives++
		}
	}

	if m.TotalEvents > 0 {
		m.TruePositiveRate = float64(m.DetectedEvents) / float64(m.TotalEvents)
	}
	if m.DetectedEvents > 0 {
		m.MeanLeadTimeDays = float64(leadSum) / float64(m.DetectedEvents)
	}
	if m.WarningPoints > 0 {
		m.FalsePositiveRate = float64(m.FalsePositives) / float64(m.WarningPoints)
	}

	log.Debug().
		Int("events", m.TotalEvents).
		Int("detected", m.DetectedEvents).
		Int("warning_points", m.WarningPoints).
		Int("false_positives", m.FalsePositives).
		Msg("crisis validation complete")

	return m
}

// covered reports whether a warning point is vindicated: a crisis starts
// within the window after it, or the point falls inside an ongoing crisis.
func (v *Validator) covered(date time.Time, events []Event, window time.Duration) bool {
	for _, ev := range events {
		if !ev.Start.Before(date) && !ev.Start.After(date.Add(window)) {
			return true
		}
		if !date.Before(ev.Start) && !date.After(ev.End) {
			return true
		}
	}
	return false
}
