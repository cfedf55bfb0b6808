package backtest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"StockLens/internal/model"
)

// ErrUnknownTimeframe is returned for a timeframe name outside the presets.
var ErrUnknownTimeframe = errors.New("unknown timeframe")

// Preset describes a named lookback window.
type Preset struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Years int    `json:"years,omitempty"`
}

// Presets lists the supported windows from shortest to longest. YTD has no
// fixed length and starts on January 1 of the latest bar's year.
var Presets = []Preset{
	{Name: "YTD", Label: "Year to date"},
	{Name: "1Y", Label: "1 year", Years: 1},
	{Name: "3Y", Label: "3 years", Years: 3},
	{Name: "5Y", Label: "5 years", Years: 5},
	{Name: "10Y", Label: "10 years", Years: 10},
}

// DefaultTimeframes are evaluated when the caller names none.
var DefaultTimeframes = []string{"YTD", "1Y", "3Y"}

// MaxLookbackYears covers the longest preset.
const MaxLookbackYears = 10

func findPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// StartOf returns the first date included in the named timeframe.
func StartOf(name string, latest time.Time) (time.Time, error) {
	p, ok := findPreset(name)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownTimeframe, name)
	}
	day := model.DayOf(latest)
	if p.Years == 0 {
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return day.AddDate(-p.Years, 0, 0), nil
}

// ResolveTimeframes maps preset names to start dates relative to latest.
// Names are normalized to their canonical upper-case spelling. An empty list
// resolves DefaultTimeframes.
func ResolveTimeframes(names []string, latest time.Time) (map[string]time.Time, error) {
	if len(names) == 0 {
		names = DefaultTimeframes
	}
	out := make(map[string]time.Time, len(names))
	for _, name := range names {
		start, err := StartOf(name, latest)
		if err != nil {
			return nil, err
		}
		p, _ := findPreset(name)
		out[p.Name] = start
	}
	return out, nil
}

// OrderedNames returns the timeframe names of tf in preset order, followed by
// any custom names sorted alphabetically.
func OrderedNames[V any](tf map[string]V) []string {
	names := make([]string, 0, len(tf))
	for _, p := range Presets {
		if _, ok := tf[p.Name]; ok {
			names = append(names, p.Name)
		}
	}
	var custom []string
	for name := range tf {
		if _, ok := findPreset(name); !ok {
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)
	return append(names, custom...)
}
