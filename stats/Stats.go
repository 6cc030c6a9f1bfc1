// Package stats implements feed-based statistics sinks. Update rules
// and their collaborators report scalar statistics by feeding named
// values into a Stats sink, which accumulates them for later
// summarization.
package stats

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Series accumulates every value fed to a single named statistic
// within one aggregation window.
type Series struct {
	name   string
	values []float64
}

// Name returns the name of the statistic the Series accumulates
func (s *Series) Name() string {
	return s.name
}

// Feed appends a value to the Series
func (s *Series) Feed(value float64) {
	s.values = append(s.values, value)
}

// Count returns the number of values fed to the Series
func (s *Series) Count() int {
	return len(s.values)
}

// Sum returns the sum of all values fed to the Series
func (s *Series) Sum() float64 {
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	return sum
}

// Mean returns the mean of all values fed to the Series
func (s *Series) Mean() float64 {
	if len(s.values) == 0 {
		return math.NaN()
	}
	return stat.Mean(s.values, nil)
}

// Min returns the minimum value fed to the Series
func (s *Series) Min() float64 {
	if len(s.values) == 0 {
		return math.NaN()
	}
	min := s.values[0]
	for _, v := range s.values {
		if v < min {
			min = v
		}
	}
	return min
}

// Max returns the maximum value fed to the Series
func (s *Series) Max() float64 {
	if len(s.values) == 0 {
		return math.NaN()
	}
	max := s.values[0]
	for _, v := range s.values {
		if v > max {
			max = v
		}
	}
	return max
}

// Last returns the most recently fed value
func (s *Series) Last() float64 {
	if len(s.values) == 0 {
		return math.NaN()
	}
	return s.values[len(s.values)-1]
}

// Values returns a copy of all values fed to the Series
func (s *Series) Values() []float64 {
	values := make([]float64, len(s.values))
	copy(values, s.values)
	return values
}

// Stats is an append-only sink of named statistics. Series are
// created lazily on first feed.
type Stats struct {
	series map[string]*Series
}

// New creates and returns a new empty Stats sink
func New() *Stats {
	return &Stats{series: make(map[string]*Series)}
}

// Feed appends a value to the named Series, creating it if needed
func (st *Stats) Feed(name string, value float64) {
	st.Get(name).Feed(value)
}

// Get returns the named Series, creating an empty one if it does not
// exist yet
func (st *Stats) Get(name string) *Series {
	s, ok := st.series[name]
	if !ok {
		s = &Series{name: name}
		st.series[name] = s
	}
	return s
}

// Has returns whether any value has been fed under the given name
func (st *Stats) Has(name string) bool {
	s, ok := st.series[name]
	return ok && s.Count() > 0
}

// Names returns the names of all Series in sorted order
func (st *Stats) Names() []string {
	names := make([]string, 0, len(st.series))
	for name := range st.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary renders a one-line-per-statistic summary of the current
// aggregation window
func (st *Stats) Summary() string {
	var b strings.Builder
	for _, name := range st.Names() {
		s := st.series[name]
		if s.Count() == 0 {
			continue
		}
		fmt.Fprintf(&b, "%v: n=%d avg=%g min=%g max=%g\n", name, s.Count(),
			s.Mean(), s.Min(), s.Max())
	}
	return b.String()
}

// Reset starts a new aggregation window, discarding all fed values
func (st *Stats) Reset() {
	for name := range st.series {
		st.series[name] = &Series{name: name}
	}
}

// SaveSeries saves all values fed to the named Series to disk
func (st *Stats) SaveSeries(name, filename string) error {
	s, ok := st.series[name]
	if !ok {
		return fmt.Errorf("saveseries: no series named %v", name)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("saveseries: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err := en.Encode(s.values); err != nil {
		return fmt.Errorf("saveseries: could not encode series: %v", err)
	}
	return nil
}

// LoadSeries loads and returns the data saved by SaveSeries
func LoadSeries(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadseries: could not open data file: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	var data []float64
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("loadseries: could not decode data: %v", err)
	}
	return data, nil
}
