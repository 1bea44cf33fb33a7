// Package definitions holds the constants shared by the MLE fitting kernels and
// the host code that sizes their buffers and configures their launches.
//
// Integer constants are untyped so they can be used both as values and as
// array lengths. Changing any of them changes buffer sizes and launch
// configuration for every consumer at once.
package definitions

// Launch geometry
const (
	// BlockSize is the maximum number of threads per block
	BlockSize = 64

	// NumKernelBlocks is the number of blocks to run in each kernel
	NumKernelBlocks = 128
)

// Image window sizes
const (
	// Mem is not used. Kept for consumers that still reference it.
	Mem = 3872

	// ImageSize is not used. Kept for consumers that still reference it.
	ImageSize = 11

	// ImageSizeBig is the maximum fitting window size in pixels
	ImageSizeBig = 21
)

// Pi is a fixed single-precision value of π so that host and kernel code
// agree on the same number.
const Pi float32 = 3.141592

// Number of fitting parameters for each MLE model
const (
	// NumParamsNoBackground: x, y, I
	NumParamsNoBackground = 3

	// NumParams: x, y, bg, I
	NumParams = 4

	// NumParamsSigma: x, y, bg, I, Sigma
	NumParamsSigma = 5

	// NumParamsZ: x, y, bg, I, z. Not used.
	NumParamsZ = 5

	// NumParamsSigmaXY: x, y, bg, I, Sx, Sy
	NumParamsSigmaXY = 6
)

// Fixed-length parameter vectors as exchanged with the kernels
type (
	NoBackgroundVector [NumParamsNoBackground]float32
	StandardVector     [NumParams]float32
	SigmaVector        [NumParamsSigma]float32
	ZVector            [NumParamsZ]float32
	SigmaXYVector      [NumParamsSigmaXY]float32
)

// Entry describes one constant of the table
type Entry struct {
	Name        string  `yaml:"name"`
	Legacy      string  `yaml:"legacy"`
	Value       float64 `yaml:"value"`
	Description string  `yaml:"description"`
	Unused      bool    `yaml:"unused,omitempty"`
}

// Table returns every constant in declaration order
func Table() []Entry {
	return []Entry{
		{Name: "BlockSize", Legacy: "BSZ", Value: BlockSize, Description: "max number of threads per block"},
		{Name: "Mem", Legacy: "MEM", Value: Mem, Description: "not used", Unused: true},
		{Name: "ImageSize", Legacy: "IMSZ", Value: ImageSize, Description: "not used", Unused: true},
		{Name: "ImageSizeBig", Legacy: "IMSZBIG", Value: ImageSizeBig, Description: "maximum fitting window size"},
		{Name: "NumKernelBlocks", Legacy: "NK", Value: NumKernelBlocks, Description: "number of blocks to run in each kernel"},
		{Name: "Pi", Legacy: "pi", Value: float64(Pi), Description: "single-precision value of pi"},
		{Name: "NumParamsNoBackground", Legacy: "NV_PNB", Value: NumParamsNoBackground, Description: "fitting parameters for the no-background model (x,y,I)"},
		{Name: "NumParams", Legacy: "NV_P", Value: NumParams, Description: "fitting parameters for the standard model (x,y,bg,I)"},
		{Name: "NumParamsSigma", Legacy: "NV_PS", Value: NumParamsSigma, Description: "fitting parameters for the sigma model (x,y,bg,I,Sigma)"},
		{Name: "NumParamsZ", Legacy: "NV_PZ", Value: NumParamsZ, Description: "not used (x,y,bg,I,z)", Unused: true},
		{Name: "NumParamsSigmaXY", Legacy: "NV_PS2", Value: NumParamsSigmaXY, Description: "fitting parameters for the sigma-xy model (x,y,bg,I,Sx,Sy)"},
	}
}
