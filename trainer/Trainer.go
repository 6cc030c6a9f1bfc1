// Package trainer implements the epoch-level training driver: it
// pulls trajectory batches from a source, runs an update rule on
// each, applies the accumulated gradients, and summarizes statistics
// per epoch.
package trainer

import (
	"fmt"
	"io"
	"os"

	"github.com/SunnyWangGitHub/ELF/batch"
	"github.com/SunnyWangGitHub/ELF/model"
	"github.com/SunnyWangGitHub/ELF/stats"
	"github.com/SunnyWangGitHub/ELF/utils/progressbar"
)

// Method is an update rule that consumes one trajectory batch
type Method interface {
	Update(*model.Interface, *batch.Batch, *stats.Stats) error
}

// BatchSource produces trajectory batches, e.g. by rolling out the
// current policy in a set of games
type BatchSource interface {
	NextBatch() (*batch.Batch, error)
}

// Config describes a configuration of a Trainer
type Config struct {
	// Epochs is the number of epochs to run
	Epochs int `json:"Epochs"`

	// BatchesPerEpoch is the number of trajectory batches consumed
	// per epoch
	BatchesPerEpoch int `json:"BatchesPerEpoch"`

	// ModelName is the name of the model whose weights are updated
	// after each batch
	ModelName string `json:"ModelName"`

	// Verbose prints a stats summary after every epoch
	Verbose bool `json:"Verbose"`

	// CostFile, if non-empty, is where the per-epoch mean cost is
	// saved after training
	CostFile string `json:"CostFile"`
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("number of epochs must be positive \n\thave(%v)",
			c.Epochs)
	}
	if c.BatchesPerEpoch <= 0 {
		return fmt.Errorf("batches per epoch must be positive "+
			"\n\thave(%v)", c.BatchesPerEpoch)
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}

// Trainer drives training: update rule, weight application, and
// per-epoch summarization
type Trainer struct {
	cfg    Config
	method Method
	mi     *model.Interface
	source BatchSource
	st     *stats.Stats
	out    io.Writer

	epochCosts []float64
}

// New creates and returns a new Trainer
func New(c Config, method Method, mi *model.Interface, source BatchSource,
	st *stats.Stats) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if _, err := mi.Model(c.ModelName); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Trainer{
		cfg:    c,
		method: method,
		mi:     mi,
		source: source,
		st:     st,
		out:    os.Stdout,
	}, nil
}

// Run trains for the configured number of epochs. Each batch triggers
// one update call and one weight update; each epoch ends with a stats
// summary and a fresh aggregation window.
func (t *Trainer) Run() error {
	m, err := t.mi.Model(t.cfg.ModelName)
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		var bar *progressbar.ProgressBar
		if t.cfg.Verbose {
			bar = progressbar.New(40, t.cfg.BatchesPerEpoch, t.out)
		}

		for i := 0; i < t.cfg.BatchesPerEpoch; i++ {
			b, err := t.source.NextBatch()
			if err != nil {
				return fmt.Errorf("run: could not produce batch %v of "+
					"epoch %v: %v", i, epoch, err)
			}
			if err := t.method.Update(t.mi, b, t.st); err != nil {
				return fmt.Errorf("run: could not update on batch %v of "+
					"epoch %v: %v", i, epoch, err)
			}
			if err := m.UpdateWeights(); err != nil {
				return fmt.Errorf("run: could not apply weights on batch "+
					"%v of epoch %v: %v", i, epoch, err)
			}
			if bar != nil {
				bar.Increment()
			}
		}

		if bar != nil {
			bar.Close()
		}

		t.epochCosts = append(t.epochCosts, t.st.Get("cost").Mean())
		if t.cfg.Verbose {
			fmt.Fprintf(t.out, "epoch %v\n%v", epoch, t.st.Summary())
		}
		t.st.Reset()
	}

	if t.cfg.CostFile != "" {
		if err := t.saveCosts(); err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}
	return nil
}

// Costs returns the mean cost of every completed epoch
func (t *Trainer) Costs() []float64 {
	costs := make([]float64, len(t.epochCosts))
	copy(costs, t.epochCosts)
	return costs
}

// saveCosts persists the per-epoch mean costs through a throwaway
// stats series, reusing its gob encoding
func (t *Trainer) saveCosts() error {
	curve := stats.New()
	for _, c := range t.epochCosts {
		curve.Feed("cost", c)
	}
	return curve.SaveSeries("cost", t.cfg.CostFile)
}
