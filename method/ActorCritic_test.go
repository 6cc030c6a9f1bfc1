package method

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/SunnyWangGitHub/ELF/batch"
	"github.com/SunnyWangGitHub/ELF/model"
	"github.com/SunnyWangGitHub/ELF/network"
	"github.com/SunnyWangGitHub/ELF/solver"
	"github.com/SunnyWangGitHub/ELF/stats"
)

// newLinearSetup builds an update rule over a model whose value head
// is the identity of its single input feature and whose policy head is
// uniform: the value head weight is set to 1 and every other weight is
// zero, so the value estimate of a state equals the state itself and
// the update arithmetic can be checked by hand. Entropy regularization
// and importance correction are disabled.
func newLinearSetup(t *testing.T) (*ActorCritic, *model.Interface,
	*model.Model) {
	t.Helper()

	net, err := network.NewNamedMLP(1, 1, G.NewGraph(), nil, nil,
		G.Zeroes(), nil, map[string]int{"pi": 2, "V": 1})
	if err != nil {
		t.Fatal(err)
	}

	sol, err := solver.NewVanilla(0.1, 1)
	if err != nil {
		t.Fatal(err)
	}

	m, err := model.New(net, sol, model.Host, 0)
	if err != nil {
		t.Fatal(err)
	}
	mi := model.NewInterface()
	if err := mi.Add("model", m); err != nil {
		t.Fatal(err)
	}

	c := DefaultActorCriticConfig(1)
	c.PG.EntropyRatio = 0
	c.PG.RatioClamp = 0

	ac, err := NewActorCritic(c, mi)
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range net.Learnables() {
		if n.Name() == "V.W" {
			w := tensor.New(
				tensor.WithBacking([]float64{1.0}),
				tensor.WithShape(1, 1),
			)
			if err := G.Let(n, w); err != nil {
				t.Fatal(err)
			}
		}
	}
	return ac, mi, m
}

// twoStepBatch returns a single-game trajectory of two timesteps with
// states 0.3 and 0.5 and a reward of 1 at the first step
func twoStepBatch(t *testing.T, terminal bool, action int) *batch.Batch {
	t.Helper()

	b := batch.New(1, 1, 2)
	if err := b.Append([]float64{0.3}, []float64{1.0}, []bool{terminal},
		[]int{action}, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Append([]float64{0.5}, []float64{0.0}, []bool{false},
		[]int{0}, nil); err != nil {
		t.Fatal(err)
	}
	return b
}

// gradFor returns the accumulated gradient buffer of the named
// learnable
func gradFor(t *testing.T, m *model.Model, name string) []float64 {
	t.Helper()

	for i, n := range m.Net().Learnables() {
		if n.Name() == name {
			return m.Grads()[i].Data().([]float64)
		}
	}
	t.Fatalf("no learnable named %v", name)
	return nil
}

func TestActorCriticUpdateCost(t *testing.T) {
	ac, mi, m := newLinearSetup(t)
	st := stats.New()

	if err := ac.Update(mi, twoStepBatch(t, false, 1), st); err != nil {
		t.Fatal(err)
	}

	// V_1 = 0.5 seeds bootstrapping, V_0 = 0.3, r_0 = 1
	R := 1.0 + 0.99*0.5
	valueLoss := (0.3 - R) * (0.3 - R)
	policyLoss := -math.Log(0.5) * (R - 0.3)
	want := valueLoss + policyLoss

	if got := st.Get("cost").Last(); math.Abs(got-want) > tolerance {
		t.Errorf("illegal cost \n\twant(%v)\n\thave(%v)", want, got)
	}
	if got := m.GradSteps(); got != 1 {
		t.Errorf("illegal gradient step count \n\twant(%v)\n\thave(%v)", 1,
			got)
	}
	if got := st.Get("reward").Count(); got != 1 {
		t.Errorf("illegal reward feed count \n\twant(%v)\n\thave(%v)", 1,
			got)
	}
	if got := st.Get("bootstrap_V").Last(); math.Abs(got-0.5) > tolerance {
		t.Errorf("illegal bootstrap value \n\twant(%v)\n\thave(%v)", 0.5,
			got)
	}
	if !st.Has("entropy") {
		t.Error("expected an entropy statistic to be fed")
	}
}

func TestActorCriticTerminalStep(t *testing.T) {
	ac, mi, _ := newLinearSetup(t)
	st := stats.New()

	if err := ac.Update(mi, twoStepBatch(t, true, 1), st); err != nil {
		t.Fatal(err)
	}

	// The terminal flag discards the bootstrap value, so R_0 = r_0
	valueLoss := (0.3 - 1.0) * (0.3 - 1.0)
	policyLoss := -math.Log(0.5) * (1.0 - 0.3)
	want := valueLoss + policyLoss

	if got := st.Get("cost").Last(); math.Abs(got-want) > tolerance {
		t.Errorf("illegal cost \n\twant(%v)\n\thave(%v)", want, got)
	}
}

func TestActorCriticValueDetachment(t *testing.T) {
	ac, mi, m := newLinearSetup(t)
	st := stats.New()

	if err := ac.Update(mi, twoStepBatch(t, false, 1), st); err != nil {
		t.Fatal(err)
	}

	// The advantage is detached from the value head, so the value
	// head's gradient comes from the squared value error alone. With
	// V_0 = w * s the exact gradients are known in closed form.
	R := 1.0 + 0.99*0.5
	wantW := 2 * (0.3 - R) * 0.3
	wantB := 2 * (0.3 - R)

	if got := gradFor(t, m, "V.W")[0]; math.Abs(got-wantW) > tolerance {
		t.Errorf("policy objective leaked into the value weight gradient "+
			"\n\twant(%v)\n\thave(%v)", wantW, got)
	}
	if got := gradFor(t, m, "V.b")[0]; math.Abs(got-wantB) > tolerance {
		t.Errorf("policy objective leaked into the value bias gradient "+
			"\n\twant(%v)\n\thave(%v)", wantB, got)
	}
}

func TestActorCriticPolicyGradient(t *testing.T) {
	ac, mi, m := newLinearSetup(t)
	st := stats.New()

	if err := ac.Update(mi, twoStepBatch(t, false, 1), st); err != nil {
		t.Fatal(err)
	}

	// With uniform logits and sampled action 1, the loss gradient with
	// respect to logit j is -advantage * (1{j==1} - 0.5)
	adv := 1.0 + 0.99*0.5 - 0.3
	wantLogits := []float64{adv * 0.5, -adv * 0.5}

	gotW := gradFor(t, m, "pi.W")
	gotB := gradFor(t, m, "pi.b")
	for j, want := range wantLogits {
		if math.Abs(gotW[j]-0.3*want) > tolerance {
			t.Errorf("illegal policy weight gradient at %v \n\twant(%v)"+
				"\n\thave(%v)", j, 0.3*want, gotW[j])
		}
		if math.Abs(gotB[j]-want) > tolerance {
			t.Errorf("illegal policy bias gradient at %v \n\twant(%v)"+
				"\n\thave(%v)", j, want, gotB[j])
		}
	}
}

func TestActorCriticRepeatedUpdates(t *testing.T) {
	ac, mi, m := newLinearSetup(t)
	st := stats.New()

	b := twoStepBatch(t, false, 1)
	if err := ac.Update(mi, b, st); err != nil {
		t.Fatal(err)
	}
	if err := ac.Update(mi, b, st); err != nil {
		t.Fatal(err)
	}

	// No return-estimator state may leak between calls, so the second
	// update of an identical batch produces an identical cost
	costs := st.Get("cost").Values()
	if len(costs) != 2 {
		t.Fatalf("illegal cost feed count \n\twant(%v)\n\thave(%v)", 2,
			len(costs))
	}
	if math.Abs(costs[0]-costs[1]) > tolerance {
		t.Errorf("state leaked between updates \n\tfirst(%v)\n\tsecond(%v)",
			costs[0], costs[1])
	}

	if got := m.GradSteps(); got != 2 {
		t.Errorf("illegal gradient step count \n\twant(%v)\n\thave(%v)", 2,
			got)
	}

	// Gradients accumulate across updates until the weights are applied
	R := 1.0 + 0.99*0.5
	wantW := 2 * 2 * (0.3 - R) * 0.3
	if got := gradFor(t, m, "V.W")[0]; math.Abs(got-wantW) > tolerance {
		t.Errorf("gradients did not accumulate \n\twant(%v)\n\thave(%v)",
			wantW, got)
	}
}

func TestActorCriticThreeStepTrajectory(t *testing.T) {
	ac, mi, m := newLinearSetup(t)
	st := stats.New()

	b := batch.New(1, 1, 2)
	steps := []struct {
		state  float64
		reward float64
		action int
	}{
		{0.3, 1.0, 1},
		{0.4, 0.5, 0},
		{0.5, 0.0, 0},
	}
	for _, s := range steps {
		err := b.Append([]float64{s.state}, []float64{s.reward},
			[]bool{false}, []int{s.action}, nil)
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := ac.Update(mi, b, st); err != nil {
		t.Fatal(err)
	}

	R1 := 0.5 + 0.99*0.5
	loss1 := (0.4-R1)*(0.4-R1) - math.Log(0.5)*(R1-0.4)
	R0 := 1.0 + 0.99*R1
	loss0 := (0.3-R0)*(0.3-R0) - math.Log(0.5)*(R0-0.3)
	want := (loss0 + loss1) / 2.0

	if got := st.Get("cost").Last(); math.Abs(got-want) > tolerance {
		t.Errorf("illegal cost \n\twant(%v)\n\thave(%v)", want, got)
	}
	if got := m.GradSteps(); got != 2 {
		t.Errorf("illegal gradient step count \n\twant(%v)\n\thave(%v)", 2,
			got)
	}
	if got := st.Get("reward").Count(); got != 2 {
		t.Errorf("illegal reward feed count \n\twant(%v)\n\thave(%v)", 2,
			got)
	}
}

func TestActorCriticShortTrajectory(t *testing.T) {
	ac, mi, _ := newLinearSetup(t)
	st := stats.New()

	b := batch.New(1, 1, 2)
	if err := b.Append([]float64{0.3}, []float64{1.0}, []bool{false},
		[]int{0}, nil); err != nil {
		t.Fatal(err)
	}

	if err := ac.Update(mi, b, st); err == nil {
		t.Error("expected an error for a single-timestep trajectory")
	}
}

func TestActorCriticWrongNumGames(t *testing.T) {
	ac, mi, _ := newLinearSetup(t)
	st := stats.New()

	b := batch.New(2, 1, 2)
	for i := 0; i < 2; i++ {
		err := b.Append([]float64{0.3, 0.4}, []float64{1.0, 1.0},
			[]bool{false, false}, []int{0, 0}, nil)
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := ac.Update(mi, b, st); err == nil {
		t.Error("expected an error for a game count mismatch")
	}
}

func TestNewActorCriticBatchSizeMismatch(t *testing.T) {
	net, err := network.NewNamedMLP(1, 1, G.NewGraph(), nil, nil,
		G.Zeroes(), nil, map[string]int{"pi": 2, "V": 1})
	if err != nil {
		t.Fatal(err)
	}
	sol, err := solver.NewVanilla(0.1, 1)
	if err != nil {
		t.Fatal(err)
	}
	m, err := model.New(net, sol, model.Host, 0)
	if err != nil {
		t.Fatal(err)
	}
	mi := model.NewInterface()
	if err := mi.Add("model", m); err != nil {
		t.Fatal(err)
	}

	if _, err := NewActorCritic(DefaultActorCriticConfig(2),
		mi); err == nil {
		t.Error("expected an error for a batch size mismatch")
	}
}

func TestNewActorCriticMissingValueHead(t *testing.T) {
	net, err := network.NewNamedMLP(1, 1, G.NewGraph(), nil, nil,
		G.Zeroes(), nil, map[string]int{"pi": 2, "value": 1})
	if err != nil {
		t.Fatal(err)
	}
	sol, err := solver.NewVanilla(0.1, 1)
	if err != nil {
		t.Fatal(err)
	}
	m, err := model.New(net, sol, model.Host, 0)
	if err != nil {
		t.Fatal(err)
	}
	mi := model.NewInterface()
	if err := mi.Add("model", m); err != nil {
		t.Fatal(err)
	}

	if _, err := NewActorCritic(DefaultActorCriticConfig(1),
		mi); err == nil {
		t.Error("expected an error for a missing value head")
	}
}
