// Package initwfn wraps Gorgonia weight initializers so that they can
// be JSON serialized into configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of weight initializers that are
// available
type Type string

// Available weight initializer types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	Gaussian Type = "Gaussian"
	Zeroes   Type = "Zeroes"
)

// Config implements a Gorgonia InitWFn configuration and can be used
// to create the weight initializer it describes
type Config interface {
	Create() G.InitWFn

	// ValidType returns whether a specific initializer type can be
	// created with the Config
	ValidType(Type) bool
}

// InitWFn wraps a Gorgonia InitWFn together with the Type and Config
// it was created from so that it can be JSON marshalled and
// unmarshalled
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new initializer with the given type and
// configuration
func newInitWFn(t Type, c Config) (*InitWFn, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newinitwfn: invalid initializer type %v "+
			"for configuration %T", t, c)
	}
	w := InitWFn{Type: t, Config: c}
	w.initWFn = w.Config.Create()

	return &w, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	typeName, ok := m["Type"].(string)
	if !ok {
		return fmt.Errorf("unmarshaljson: missing initializer type")
	}

	configTypes := map[string]reflect.Type{
		string(GlorotU):  reflect.TypeOf(GlorotUConfig{}),
		string(GlorotN):  reflect.TypeOf(GlorotNConfig{}),
		string(Gaussian): reflect.TypeOf(GaussianConfig{}),
		string(Zeroes):   reflect.TypeOf(ZeroesConfig{}),
	}
	ty, found := configTypes[typeName]
	if !found {
		return fmt.Errorf("unmarshaljson: unknown initializer type %v",
			typeName)
	}
	config := reflect.New(ty).Interface().(Config)

	configBytes, err := json.Marshal(m["Config"])
	if err != nil {
		return err
	}
	if err := json.Unmarshal(configBytes, config); err != nil {
		return err
	}

	w.Type = Type(typeName)
	w.Config = config
	w.initWFn = w.Config.Create()

	return nil
}

// GlorotUConfig describes a configuration of the Glorot uniform
// initialization algorithm
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotU, GlorotUConfig{Gain: gain})
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(g.Gain)
}

// ValidType returns whether the given initializer type is a valid type
// to be created with this config
func (g GlorotUConfig) ValidType(t Type) bool {
	return t == GlorotU
}

// GlorotNConfig describes a configuration of the Glorot normal
// initialization algorithm
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotN, GlorotNConfig{Gain: gain})
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotNConfig) Create() G.InitWFn {
	return G.GlorotN(g.Gain)
}

// ValidType returns whether the given initializer type is a valid type
// to be created with this config
func (g GlorotNConfig) ValidType(t Type) bool {
	return t == GlorotN
}

// GaussianConfig describes a configuration of Gaussian weight
// initialization
type GaussianConfig struct {
	Mean   float64
	StdDev float64
}

// NewGaussian returns a new Gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(Gaussian, GaussianConfig{Mean: mean, StdDev: stddev})
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(g.Mean, g.StdDev)
}

// ValidType returns whether the given initializer type is a valid type
// to be created with this config
func (g GaussianConfig) ValidType(t Type) bool {
	return t == Gaussian
}

// ZeroesConfig describes a configuration of zero weight initialization
type ZeroesConfig struct{}

// NewZeroes returns a new zero weight initializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(Zeroes, ZeroesConfig{})
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (z ZeroesConfig) Create() G.InitWFn {
	return G.Zeroes()
}

// ValidType returns whether the given initializer type is a valid type
// to be created with this config
func (z ZeroesConfig) ValidType(t Type) bool {
	return t == Zeroes
}
