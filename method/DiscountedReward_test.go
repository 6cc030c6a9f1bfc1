package method

import (
	"math"
	"testing"

	"github.com/SunnyWangGitHub/ELF/stats"
)

const tolerance = 1e-8

func TestDiscountedRewardBootstrap(t *testing.T) {
	dr, err := NewDiscountedReward(DiscountedRewardConfig{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()

	dr.SetR([]float64{0.5}, st)
	R, err := dr.Feed([]float64{1.0}, []bool{false}, st)
	if err != nil {
		t.Fatal(err)
	}

	want := 1.0 + 0.99*0.5
	if got := R.AtVec(0); math.Abs(got-want) > tolerance {
		t.Errorf("illegal discounted return \n\twant(%v)\n\thave(%v)", want,
			got)
	}
	if got := st.Get("bootstrap_V").Last(); got != 0.5 {
		t.Errorf("illegal bootstrap statistic \n\twant(%v)\n\thave(%v)", 0.5,
			got)
	}
	if got := st.Get("reward").Last(); got != 1.0 {
		t.Errorf("illegal reward statistic \n\twant(%v)\n\thave(%v)", 1.0,
			got)
	}
}

func TestDiscountedRewardTerminal(t *testing.T) {
	dr, err := NewDiscountedReward(DiscountedRewardConfig{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()

	// An episode boundary discards the bootstrap value entirely
	dr.SetR([]float64{100.0}, st)
	R, err := dr.Feed([]float64{1.0}, []bool{true}, st)
	if err != nil {
		t.Fatal(err)
	}

	if got := R.AtVec(0); got != 1.0 {
		t.Errorf("terminal step must reset the return to the immediate "+
			"reward \n\twant(%v)\n\thave(%v)", 1.0, got)
	}
}

func TestDiscountedRewardMixedTerminals(t *testing.T) {
	dr, err := NewDiscountedReward(DiscountedRewardConfig{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()

	dr.SetR([]float64{0.5, 2.0}, st)
	R, err := dr.Feed([]float64{1.0, 1.0}, []bool{true, false}, st)
	if err != nil {
		t.Fatal(err)
	}

	if got := R.AtVec(0); got != 1.0 {
		t.Errorf("illegal terminal instance return \n\twant(%v)\n\thave(%v)",
			1.0, got)
	}
	want := 1.0 + 0.99*2.0
	if got := R.AtVec(1); math.Abs(got-want) > tolerance {
		t.Errorf("illegal bootstrapped instance return \n\twant(%v)"+
			"\n\thave(%v)", want, got)
	}
}

func TestDiscountedRewardChain(t *testing.T) {
	dr, err := NewDiscountedReward(DiscountedRewardConfig{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()

	dr.SetR([]float64{1.0}, st)
	if _, err := dr.Feed([]float64{2.0}, []bool{false}, st); err != nil {
		t.Fatal(err)
	}
	R, err := dr.Feed([]float64{3.0}, []bool{false}, st)
	if err != nil {
		t.Fatal(err)
	}

	want := 3.0 + 0.99*(2.0+0.99*1.0)
	if got := R.AtVec(0); math.Abs(got-want) > tolerance {
		t.Errorf("illegal chained return \n\twant(%v)\n\thave(%v)", want, got)
	}
	if got := st.Get("reward").Count(); got != 2 {
		t.Errorf("illegal reward feed count \n\twant(%v)\n\thave(%v)", 2, got)
	}
}

func TestDiscountedRewardSetRResetsState(t *testing.T) {
	dr, err := NewDiscountedReward(DiscountedRewardConfig{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()

	dr.SetR([]float64{5.0}, st)
	if _, err := dr.Feed([]float64{1.0}, []bool{false}, st); err != nil {
		t.Fatal(err)
	}

	// A new trajectory must not see the previous trajectory's return
	dr.SetR([]float64{0.0}, st)
	R, err := dr.Feed([]float64{1.0}, []bool{false}, st)
	if err != nil {
		t.Fatal(err)
	}
	if got := R.AtVec(0); got != 1.0 {
		t.Errorf("previous trajectory state leaked into the return "+
			"\n\twant(%v)\n\thave(%v)", 1.0, got)
	}
}

func TestDiscountedRewardFeedBeforeSetR(t *testing.T) {
	dr, err := NewDiscountedReward(DiscountedRewardConfig{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()

	if _, err := dr.Feed([]float64{1.0}, []bool{false}, st); err == nil {
		t.Error("expected an error when feeding before SetR")
	}
}

func TestDiscountedRewardLengthMismatch(t *testing.T) {
	dr, err := NewDiscountedReward(DiscountedRewardConfig{Discount: 0.99})
	if err != nil {
		t.Fatal(err)
	}
	st := stats.New()

	dr.SetR([]float64{0.5}, st)
	if _, err := dr.Feed([]float64{1.0, 2.0}, []bool{false, false},
		st); err == nil {
		t.Error("expected an error for a reward length mismatch")
	}
	if _, err := dr.Feed([]float64{1.0}, []bool{false, false},
		st); err == nil {
		t.Error("expected an error for a terminal length mismatch")
	}
}

func TestNewDiscountedRewardInvalidDiscount(t *testing.T) {
	for _, discount := range []float64{0.0, -0.5, 1.5} {
		_, err := NewDiscountedReward(DiscountedRewardConfig{
			Discount: discount,
		})
		if err == nil {
			t.Errorf("expected an error for discount %v", discount)
		}
	}
}
