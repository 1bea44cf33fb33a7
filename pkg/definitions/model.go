package definitions

import (
	"fmt"
	"strings"
)

// Model identifies one of the MLE fitting variants
type Model int

const (
	// NoBackground fits x, y and intensity
	NoBackground Model = iota
	// Standard fits x, y, background and intensity
	Standard
	// Sigma adds an isotropic PSF width
	Sigma
	// Z adds an axial position. Declared but not used by any kernel.
	Z
	// SigmaXY fits independent x and y widths
	SigmaXY
)

// Models lists every variant, including the unused z-model
var Models = []Model{NoBackground, Standard, Sigma, Z, SigmaXY}

var modelNames = map[Model]string{
	NoBackground: "no_background",
	Standard:     "standard",
	Sigma:        "sigma",
	Z:            "z",
	SigmaXY:      "sigma_xy",
}

// String returns the configuration name of the model
func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel resolves a configuration name to a Model
func ParseModel(name string) (Model, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for m, n := range modelNames {
		if n == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown fitting model %q", name)
}

// NumParams returns the length of the model's parameter vector.
// Returns 0 for an unknown model.
func (m Model) NumParams() int {
	switch m {
	case NoBackground:
		return NumParamsNoBackground
	case Standard:
		return NumParams
	case Sigma:
		return NumParamsSigma
	case Z:
		return NumParamsZ
	case SigmaXY:
		return NumParamsSigmaXY
	default:
		return 0
	}
}

// ParameterNames returns the ordered labels of the parameter vector
func (m Model) ParameterNames() []string {
	switch m {
	case NoBackground:
		return []string{"x", "y", "I"}
	case Standard:
		return []string{"x", "y", "bg", "I"}
	case Sigma:
		return []string{"x", "y", "bg", "I", "sigma"}
	case Z:
		return []string{"x", "y", "bg", "I", "z"}
	case SigmaXY:
		return []string{"x", "y", "bg", "I", "sx", "sy"}
	default:
		return nil
	}
}

// Used reports whether a fitting kernel exists for the model
func (m Model) Used() bool {
	return m != Z && m.NumParams() > 0
}
