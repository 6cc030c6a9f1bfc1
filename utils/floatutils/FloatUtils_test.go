package floatutils

import (
	"math"
	"reflect"
	"testing"
)

func TestClip(t *testing.T) {
	cases := []struct {
		value, min, max, want float64
	}{
		{-1.0, 0.0, 1.0, 0.0},
		{0.5, 0.0, 1.0, 0.5},
		{2.0, 0.0, 1.0, 1.0},
		{0.0, 0.0, 1.0, 0.0},
		{1.0, 0.0, 1.0, 1.0},
	}
	for _, c := range cases {
		if got := Clip(c.value, c.min, c.max); got != c.want {
			t.Errorf("illegal clipped value for %v \n\twant(%v)"+
				"\n\thave(%v)", c.value, c.want, got)
		}
	}
}

func TestArgMax(t *testing.T) {
	if got := ArgMax(0.1, 0.7, 0.2); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("illegal argmax \n\twant(%v)\n\thave(%v)", []int{1}, got)
	}

	// Ties return every maximal index
	got := ArgMax(0.4, 0.2, 0.4)
	if !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("illegal tied argmax \n\twant(%v)\n\thave(%v)",
			[]int{0, 2}, got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1.0, 2.0, 3.0}); got != 2.0 {
		t.Errorf("illegal mean \n\twant(%v)\n\thave(%v)", 2.0, got)
	}
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float64{0.0, 0.0})
	if math.Abs(probs[0]-0.5) > 1e-12 || math.Abs(probs[1]-0.5) > 1e-12 {
		t.Errorf("illegal uniform softmax \n\thave(%v)", probs)
	}

	// Large logits must not overflow
	probs = Softmax([]float64{1000.0, 1000.0, 500.0})
	var sum float64
	for _, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("softmax overflowed \n\thave(%v)", probs)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("softmax does not sum to 1 \n\thave(%v)", sum)
	}
	if math.Abs(probs[0]-0.5) > 1e-12 {
		t.Errorf("illegal softmax of large logits \n\thave(%v)", probs)
	}
}
