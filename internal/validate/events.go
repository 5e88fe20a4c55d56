package validate

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v2"
)

// Event is one labeled historical crisis. The table is static reference
// data, read-only during validation.
type Event struct {
	Name     string
	Start    time.Time
	End      time.Time
	Severity string
}

type eventFile struct {
	Events []eventEntry `yaml:"events"`
}

type eventEntry struct {
	Name     string `yaml:"name"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Severity string `yaml:"severity"`
}

const dateLayout = "2006-01-02"

// LoadEvents reads the crisis event table from a YAML file, sorted by
// start date.
func LoadEvents(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read crisis event file %s: %w", path, err)
	}

	var file eventFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse crisis event file %s: %w", path, err)
	}

	events := make([]Event, 0, len(file.Events))
	for _, e := range file.Events {
		ev, err := e.toEvent()
		if err != nil {
			return nil, fmt.Errorf("crisis event file %s: %w", path, err)
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func (e eventEntry) toEvent() (Event, error) {
	if e.Name == "" {
		return Event{}, fmt.Errorf("crisis event with empty name")
	}
	start, err := time.Parse(dateLayout, e.Start)
	if err != nil {
		return Event{}, fmt.Errorf("event %s: invalid start date %q", e.Name, e.Start)
	}
	end, err := time.Parse(dateLayout, e.End)
	if err != nil {
		return Event{}, fmt.Errorf("event %s: invalid end date %q", e.Name, e.End)
	}
	if end.Before(start) {
		return Event{}, fmt.Errorf("event %s: end precedes start", e.Name)
	}
	return Event{Name: e.Name, Start: start, End: end, Severity: e.Severity}, nil
}

// LabelFor returns the name of the event whose [start, end] window
// contains the date, or "" when none does. Used to annotate series rows.
func LabelFor(events []Event, date time.Time) string {
	for _, e := range events {
		if !date.Before(e.Start) && !date.After(e.End) {
			return e.Name
		}
	}
	return ""
}
