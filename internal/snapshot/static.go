package snapshot

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// StaticSource serves observations from an in-memory table. It backs
// offline runs and tests; the CSV layout is `series,date,value` with an
// optional header row.
type StaticSource struct {
	mu     sync.RWMutex
	series map[string]map[string]float64 // series -> ISO date -> value
}

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{series: make(map[string]map[string]float64)}
}

// Add records one observation.
func (s *StaticSource) Add(seriesName string, date time.Time, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.series[seriesName] == nil {
		s.series[seriesName] = make(map[string]float64)
	}
	s.series[seriesName][date.Format("2006-01-02")] = value
}

// Fetch implements Source.
func (s *StaticSource) Fetch(_ context.Context, seriesName string, date time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate, ok := s.series[seriesName]
	if !ok {
		return 0, ErrUnavailable
	}
	v, ok := byDate[date.Format("2006-01-02")]
	if !ok {
		return 0, ErrUnavailable
	}
	return v, nil
}

// LoadCSV merges observations from a CSV file into the source.
func (s *StaticSource) LoadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open observation file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	line := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("observation file %s: %w", path, err)
		}
		line++

		if len(record) != 3 {
			return fmt.Errorf("observation file %s line %d: want 3 columns, got %d", path, line, len(record))
		}
		if line == 1 && record[0] == "series" {
			continue // header row
		}

		date, err := time.Parse("2006-01-02", record[1])
		if err != nil {
			return fmt.Errorf("observation file %s line %d: bad date %q", path, line, record[1])
		}
		value, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return fmt.Errorf("observation file %s line %d: bad value %q", path, line, record[2])
		}
		s.Add(record[0], date, value)
	}
}
