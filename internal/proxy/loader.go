package proxy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// chainFile is the on-disk shape of the proxy chain table.
type chainFile struct {
	Sources []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Indicator       string `yaml:"indicator"`
	Source          string `yaml:"source"`
	Start           string `yaml:"start"`
	End             string `yaml:"end"`
	NativeFrequency string `yaml:"native_frequency"`
	Quality         string `yaml:"quality"`
}

const dateLayout = "2006-01-02"

// LoadChains reads the proxy chain table from a YAML file and returns a
// validated resolver.
func LoadChains(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy chain file %s: %w", path, err)
	}

	var file chainFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse proxy chain file %s: %w", path, err)
	}

	sources := make([]Source, 0, len(file.Sources))
	for _, e := range file.Sources {
		src, err := e.toSource()
		if err != nil {
			return nil, fmt.Errorf("proxy chain file %s: %w", path, err)
		}
		sources = append(sources, src)
	}

	resolver, err := NewResolver(sources)
	if err != nil {
		return nil, fmt.Errorf("proxy chain file %s: %w", path, err)
	}
	return resolver, nil
}

func (e sourceEntry) toSource() (Source, error) {
	start, err := time.Parse(dateLayout, e.Start)
	if err != nil {
		return Source{}, fmt.Errorf("source %s/%s: invalid start date %q", e.Indicator, e.Source, e.Start)
	}

	var end time.Time
	if e.End != "" {
		end, err = time.Parse(dateLayout, e.End)
		if err != nil {
			return Source{}, fmt.Errorf("source %s/%s: invalid end date %q", e.Indicator, e.Source, e.End)
		}
	}

	tier, err := ParseTier(e.Quality)
	if err != nil {
		return Source{}, fmt.Errorf("source %s/%s: %w", e.Indicator, e.Source, err)
	}

	return Source{
		IndicatorID:     e.Indicator,
		SourceName:      e.Source,
		Start:           start,
		End:             end,
		NativeFrequency: e.NativeFrequency,
		Tier:            tier,
	}, nil
}
