package model

// Device is an explicit placement capability: it records whether a
// model's tensors live in host memory or on an accelerator. Update
// rules query a model's Device once per update call and funnel every
// host-produced scalar through Colocate before combining it with
// model-resident tensors, instead of re-sensing placement per tensor.
type Device int

const (
	// Host places tensors in host memory
	Host Device = iota

	// Accelerator places tensors in accelerator memory
	Accelerator
)

// String implements the Stringer interface
func (d Device) String() string {
	switch d {
	case Host:
		return "Host"
	case Accelerator:
		return "Accelerator"
	default:
		return "Unknown"
	}
}

// IsAccelerator returns whether the Device is an accelerator
func (d Device) IsAccelerator() bool {
	return d == Accelerator
}

// Colocate places a host scalar vector for the Device. Data bound to
// graph input nodes is transferred at bind time, so colocation on an
// accelerator amounts to handing over a private copy that the caller
// will not mutate afterwards; on the host the data is used in place.
func (d Device) Colocate(data []float64) []float64 {
	if !d.IsAccelerator() {
		return data
	}
	out := make([]float64, len(data))
	copy(out, data)
	return out
}
