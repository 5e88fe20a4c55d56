package backtest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/macrolab/macindex/internal/composite"
)

// Writer persists backtest artifacts: the series as CSV and JSONL, plus a
// run metadata file. The CSV column order is part of the output contract
// consumed by downstream reporting.
type Writer struct {
	outputDir string
}

// NewWriter creates an artifact writer rooted at outputDir.
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// OutputDir returns the directory artifacts are written to.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// WriteAll writes series.csv, series.jsonl and run.json for a result.
func (w *Writer) WriteAll(result *Result) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := w.WriteCSV(result); err != nil {
		return err
	}
	if err := w.WriteJSONL(result); err != nil {
		return err
	}
	return w.writeRunMeta(result)
}

// pillarColumns collects every pillar name appearing in the series, in
// stable order, so sparse historical pillars still get a column.
func pillarColumns(rows []composite.Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for p := range row.PillarScores {
			seen[p] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for p := range seen {
		cols = append(cols, p)
	}
	sort.Strings(cols)
	return cols
}

// WriteCSV writes the series in the tabular output contract.
func (w *Writer) WriteCSV(result *Result) error {
	path := filepath.Join(w.outputDir, "series.csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create series csv: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	pillars := pillarColumns(result.Rows)

	header := []string{"date", "mac_score"}
	for _, p := range pillars {
		header = append(header, "pillar_"+p)
	}
	header = append(header, "multiplier", "breach_flags", "interpretation",
		"crisis_event", "data_quality", "momentum_1w", "momentum_4w",
		"trend_direction", "mac_status", "degraded")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range result.Rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			formatFloat(row.MACScore),
		}
		for _, p := range pillars {
			if v, ok := row.PillarScores[p]; ok {
				record = append(record, formatFloat(v))
			} else {
				record = append(record, "")
			}
		}
		record = append(record,
			formatOptional(row.Multiplier),
			strings.Join(row.BreachFlags, "|"),
			row.Interpretation,
			row.CrisisEvent,
			string(row.DataQuality),
			formatOptional(row.Momentum1),
			formatOptional(row.Momentum4),
			row.TrendDirection,
			row.Status,
			strconv.FormatBool(row.Degraded),
		)
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSONL writes one JSON object per row, machine-readable round trip.
func (w *Writer) WriteJSONL(result *Result) error {
	path := filepath.Join(w.outputDir, "series.jsonl")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create series jsonl: %w", err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	for _, row := range result.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row %s: %w", row.Date.Format("2006-01-02"), err)
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (w *Writer) writeRunMeta(result *Result) error {
	meta := *result
	meta.Rows = nil // rows live in the series artifacts

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(w.outputDir, "run.json"), data, 0o644)
}

// ReadJSONL loads a series artifact back into rows, for the validate and
// serve commands.
func ReadJSONL(path string) ([]composite.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open series file %s: %w", path, err)
	}
	defer file.Close()

	rows := make([]composite.Row, 0)
	dec := json.NewDecoder(file)
	for {
		var row composite.Row
		if err := dec.Decode(&row); err == io.EOF {
			return rows, nil
		} else if err != nil {
			return nil, fmt.Errorf("series file %s: %w", path, err)
		}
		rows = append(rows, row)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
