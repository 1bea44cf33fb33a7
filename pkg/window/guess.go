package window

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"stormfit/pkg/definitions"
)

// InitialGuess estimates a starting parameter vector for one window.
// x and y come from the background-subtracted centre of mass, bg from the
// dimmest pixel and I from the summed signal above bg. Width parameters
// start at psfSigma. The result has model.NumParams() entries.
func InitialGuess(w []float32, size int, model definitions.Model, psfSigma float64) ([]float64, error) {
	if len(w) != size*size {
		return nil, fmt.Errorf("window has %d pixels, expected %d", len(w), size*size)
	}
	if model.NumParams() == 0 {
		return nil, fmt.Errorf("unknown fitting model %v", model)
	}

	values := make([]float64, len(w))
	for i, p := range w {
		values[i] = float64(p)
	}

	bg := floats.Min(values)
	if model == definitions.NoBackground {
		bg = 0
	}

	var sum, sx, sy float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			s := values[y*size+x] - bg
			sum += s
			sx += s * float64(x)
			sy += s * float64(y)
		}
	}

	cx, cy := float64(size-1)/2, float64(size-1)/2
	if sum > 0 {
		cx, cy = sx/sum, sy/sum
	}
	intensity := floats.Sum(values) - bg*float64(len(values))

	switch model {
	case definitions.NoBackground:
		return []float64{cx, cy, intensity}, nil
	case definitions.Standard:
		return []float64{cx, cy, bg, intensity}, nil
	case definitions.Sigma:
		return []float64{cx, cy, bg, intensity, psfSigma}, nil
	case definitions.Z:
		return []float64{cx, cy, bg, intensity, 0}, nil
	default:
		return []float64{cx, cy, bg, intensity, psfSigma, psfSigma}, nil
	}
}
