package stats

import (
	"math"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSeriesAggregates(t *testing.T) {
	st := New()
	for _, v := range []float64{2.0, 1.0, 3.0} {
		st.Feed("cost", v)
	}
	s := st.Get("cost")

	if got := s.Count(); got != 3 {
		t.Errorf("illegal count \n\twant(%v)\n\thave(%v)", 3, got)
	}
	if got := s.Sum(); got != 6.0 {
		t.Errorf("illegal sum \n\twant(%v)\n\thave(%v)", 6.0, got)
	}
	if got := s.Mean(); got != 2.0 {
		t.Errorf("illegal mean \n\twant(%v)\n\thave(%v)", 2.0, got)
	}
	if got := s.Min(); got != 1.0 {
		t.Errorf("illegal min \n\twant(%v)\n\thave(%v)", 1.0, got)
	}
	if got := s.Max(); got != 3.0 {
		t.Errorf("illegal max \n\twant(%v)\n\thave(%v)", 3.0, got)
	}
	if got := s.Last(); got != 3.0 {
		t.Errorf("illegal last \n\twant(%v)\n\thave(%v)", 3.0, got)
	}
}

func TestSeriesValuesIsACopy(t *testing.T) {
	st := New()
	st.Feed("cost", 1.0)

	values := st.Get("cost").Values()
	values[0] = 100.0

	if got := st.Get("cost").Last(); got != 1.0 {
		t.Errorf("mutating the returned values changed the series "+
			"\n\twant(%v)\n\thave(%v)", 1.0, got)
	}
}

func TestStatsEmptySeries(t *testing.T) {
	st := New()

	if st.Has("cost") {
		t.Error("empty sink must not report a series")
	}

	s := st.Get("cost")
	if !math.IsNaN(s.Mean()) || !math.IsNaN(s.Min()) ||
		!math.IsNaN(s.Max()) || !math.IsNaN(s.Last()) {
		t.Error("aggregates of an empty series must be NaN")
	}

	// Get creates the series but only Feed makes it visible to Has
	if st.Has("cost") {
		t.Error("a series without values must not be reported")
	}
	st.Feed("cost", 1.0)
	if !st.Has("cost") {
		t.Error("a fed series must be reported")
	}
}

func TestStatsNamesSorted(t *testing.T) {
	st := New()
	for _, name := range []string{"reward", "cost", "entropy"} {
		st.Feed(name, 1.0)
	}

	want := []string{"cost", "entropy", "reward"}
	if got := st.Names(); !reflect.DeepEqual(want, got) {
		t.Errorf("illegal names \n\twant(%v)\n\thave(%v)", want, got)
	}
}

func TestStatsReset(t *testing.T) {
	st := New()
	st.Feed("cost", 1.0)
	st.Reset()

	if st.Has("cost") {
		t.Error("reset must discard all fed values")
	}
	if got := st.Get("cost").Count(); got != 0 {
		t.Errorf("illegal count after reset \n\twant(%v)\n\thave(%v)", 0,
			got)
	}
}

func TestStatsSaveLoadSeries(t *testing.T) {
	st := New()
	want := []float64{1.0, 2.5, -3.0}
	for _, v := range want {
		st.Feed("cost", v)
	}

	filename := filepath.Join(t.TempDir(), "cost.bin")
	if err := st.SaveSeries("cost", filename); err != nil {
		t.Fatal(err)
	}

	got, err := LoadSeries(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("illegal loaded data \n\twant(%v)\n\thave(%v)", want, got)
	}
}

func TestStatsSaveUnknownSeries(t *testing.T) {
	st := New()
	filename := filepath.Join(t.TempDir(), "cost.bin")
	if err := st.SaveSeries("cost", filename); err == nil {
		t.Error("expected an error for an unknown series")
	}
}
