// Package buffers allocates the host-side buffers exchanged with the fitting
// kernels. Every length is derived from the constants table so that a buffer
// can never disagree with the parameter count of the model it serves.
package buffers

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"stormfit/pkg/definitions"
)

var (
	// ErrWindowSize is returned for a window outside [1, ImageSizeBig]
	ErrWindowSize = errors.New("fitting window size out of range")

	// ErrParamCount is returned when a parameter vector does not match the
	// model's parameter count
	ErrParamCount = errors.New("parameter vector length mismatch")

	// ErrFitIndex is returned for a fit index outside the buffer
	ErrFitIndex = errors.New("fit index out of range")
)

// FitBuffers holds the input windows and the per-fit results for one batch
type FitBuffers struct {
	// Model is the fitting variant the buffers are sized for
	Model definitions.Model

	// WindowSize is the side length of each fitting window in pixels
	WindowSize int

	// NumFits is the number of windows in the batch
	NumFits int

	// Data holds the windows back to back, row-major within each window
	Data []float32

	// Params holds one parameter vector per row
	Params *mat.Dense

	// CRLBs holds the Cramér-Rao lower bound of each parameter
	CRLBs *mat.Dense

	// LogLikelihood holds the final log-likelihood of each fit
	LogLikelihood []float64
}

// NewFitBuffers allocates buffers for nFits windows of windowSize pixels
func NewFitBuffers(model definitions.Model, windowSize, nFits int) (*FitBuffers, error) {
	nv := model.NumParams()
	if nv == 0 {
		return nil, fmt.Errorf("unknown fitting model %v", model)
	}
	if windowSize < 1 || windowSize > definitions.ImageSizeBig {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrWindowSize, windowSize, definitions.ImageSizeBig)
	}
	if nFits <= 0 {
		return nil, fmt.Errorf("number of fits must be positive, got %d", nFits)
	}

	return &FitBuffers{
		Model:         model,
		WindowSize:    windowSize,
		NumFits:       nFits,
		Data:          make([]float32, windowSize*windowSize*nFits),
		Params:        mat.NewDense(nFits, nv, nil),
		CRLBs:         mat.NewDense(nFits, nv, nil),
		LogLikelihood: make([]float64, nFits),
	}, nil
}

// NumParams is the parameter vector length of the buffer's model
func (b *FitBuffers) NumParams() int {
	return b.Model.NumParams()
}

// Window returns the data of fit i. The slice aliases Data.
func (b *FitBuffers) Window(i int) ([]float32, error) {
	if err := b.checkIndex(i); err != nil {
		return nil, err
	}
	n := b.WindowSize * b.WindowSize
	return b.Data[i*n : (i+1)*n], nil
}

// SetParams stores the parameter vector of fit i
func (b *FitBuffers) SetParams(i int, vec []float64) error {
	return b.setRow(b.Params, i, vec)
}

// SetCRLB stores the CRLB vector of fit i
func (b *FitBuffers) SetCRLB(i int, vec []float64) error {
	return b.setRow(b.CRLBs, i, vec)
}

// ParamsAt returns a copy of the parameter vector of fit i
func (b *FitBuffers) ParamsAt(i int) ([]float64, error) {
	if err := b.checkIndex(i); err != nil {
		return nil, err
	}
	return mat.Row(nil, i, b.Params), nil
}

// PackParams flattens the parameter matrix into the kernel layout,
// where parameter k of fit i lives at k*NumFits+i
func (b *FitBuffers) PackParams() []float32 {
	return pack(b.Params, b.NumFits, b.NumParams())
}

// UnpackParams loads a kernel-layout parameter array into the matrix
func (b *FitBuffers) UnpackParams(data []float32) error {
	return unpack(b.Params, data, b.NumFits, b.NumParams())
}

// PackCRLBs flattens the CRLB matrix into the kernel layout
func (b *FitBuffers) PackCRLBs() []float32 {
	return pack(b.CRLBs, b.NumFits, b.NumParams())
}

// UnpackCRLBs loads a kernel-layout CRLB array into the matrix
func (b *FitBuffers) UnpackCRLBs(data []float32) error {
	return unpack(b.CRLBs, data, b.NumFits, b.NumParams())
}

func (b *FitBuffers) checkIndex(i int) error {
	if i < 0 || i >= b.NumFits {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrFitIndex, i, b.NumFits)
	}
	return nil
}

func (b *FitBuffers) setRow(m *mat.Dense, i int, vec []float64) error {
	if err := b.checkIndex(i); err != nil {
		return err
	}
	if len(vec) != b.NumParams() {
		return fmt.Errorf("%w: %s model expects %d values, got %d",
			ErrParamCount, b.Model, b.NumParams(), len(vec))
	}
	m.SetRow(i, vec)
	return nil
}

func pack(m *mat.Dense, nFits, nv int) []float32 {
	out := make([]float32, nFits*nv)
	for k := 0; k < nv; k++ {
		for i := 0; i < nFits; i++ {
			out[k*nFits+i] = float32(m.At(i, k))
		}
	}
	return out
}

func unpack(m *mat.Dense, data []float32, nFits, nv int) error {
	if len(data) != nFits*nv {
		return fmt.Errorf("%w: expected %d values (%d fits x %d params), got %d",
			ErrParamCount, nFits*nv, nFits, nv, len(data))
	}
	for k := 0; k < nv; k++ {
		for i := 0; i < nFits; i++ {
			m.Set(i, k, float64(data[k*nFits+i]))
		}
	}
	return nil
}
