package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"stormfit/pkg/buffers"
)

// Viewer renders the fitting windows held in a FitBuffers batch so they can
// be inspected before or after a fit.
type Viewer struct {
	// buf holds the windows to render
	buf *buffers.FitBuffers
}

// NewViewer creates a viewer over the windows of buf
func NewViewer(buf *buffers.FitBuffers) *Viewer {
	return &Viewer{buf: buf}
}

// WindowImage renders window i as a 16-bit grayscale image, stretched to
// the window's own intensity range
func (v *Viewer) WindowImage(i int) (*image.Gray16, error) {
	w, err := v.buf.Window(i)
	if err != nil {
		return nil, err
	}

	size := v.buf.WindowSize
	values := make([]float64, len(w))
	for j, p := range w {
		values[j] = float64(p)
	}

	lo := floats.Min(values)
	span := floats.Max(values) - lo

	img := image.NewGray16(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var value uint16
			if span > 0 {
				value = uint16(math.Max(0, math.Min(65535, (values[y*size+x]-lo)/span*65535)))
			}
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}

	return img, nil
}

// Montage tiles every window into one image with the given number of columns
func (v *Viewer) Montage(cols int) (*image.Gray16, error) {
	if cols <= 0 {
		return nil, fmt.Errorf("columns must be positive, got %d", cols)
	}
	if cols > v.buf.NumFits {
		cols = v.buf.NumFits
	}

	size := v.buf.WindowSize
	rows := (v.buf.NumFits + cols - 1) / cols
	montage := image.NewGray16(image.Rect(0, 0, cols*size, rows*size))

	for i := 0; i < v.buf.NumFits; i++ {
		tile, err := v.WindowImage(i)
		if err != nil {
			return nil, err
		}
		at := image.Pt((i%cols)*size, (i/cols)*size)
		draw.Draw(montage, tile.Bounds().Add(at), tile, image.Point{}, draw.Src)
	}

	return montage, nil
}

// SaveImage saves an image as a JPEG file
func (v *Viewer) SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveWindowSequence renders and saves every window into outputDir
func (v *Viewer) SaveWindowSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for i := 0; i < v.buf.NumFits; i++ {
		img, err := v.WindowImage(i)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("window_%04d.jpg", i))
		if err := v.SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveMontage renders the montage and saves it to path
func (v *Viewer) SaveMontage(path string, cols int) error {
	img, err := v.Montage(cols)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return v.SaveImage(img, path)
}
