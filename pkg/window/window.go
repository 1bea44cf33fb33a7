// Package window cuts fitting windows out of camera frames into the data
// buffer consumed by the fitting kernels.
package window

import (
	"fmt"
	"image"
	"image/color"

	"stormfit/internal/models"
	"stormfit/pkg/buffers"
)

// Corner returns the top-left pixel of a size×size window centred on c.
// The window is shifted so it lies entirely inside bounds.
func Corner(c models.Candidate, size int, bounds image.Rectangle) image.Point {
	x := c.X - size/2
	y := c.Y - size/2

	if x+size > bounds.Max.X {
		x = bounds.Max.X - size
	}
	if y+size > bounds.Max.Y {
		y = bounds.Max.Y - size
	}
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	if y < bounds.Min.Y {
		y = bounds.Min.Y
	}

	return image.Point{X: x, Y: y}
}

// Extract copies one window per candidate from img into buf.Data.
// Pixel values are 16-bit grayscale intensities.
func Extract(img image.Image, candidates []models.Candidate, buf *buffers.FitBuffers) error {
	if len(candidates) != buf.NumFits {
		return fmt.Errorf("got %d candidates for a buffer of %d fits", len(candidates), buf.NumFits)
	}

	size := buf.WindowSize
	bounds := img.Bounds()
	if bounds.Dx() < size || bounds.Dy() < size {
		return fmt.Errorf("image %dx%d is smaller than the %dx%d fitting window",
			bounds.Dx(), bounds.Dy(), size, size)
	}

	for i, c := range candidates {
		w, err := buf.Window(i)
		if err != nil {
			return err
		}

		corner := Corner(c, size, bounds)
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				gray := color.Gray16Model.Convert(img.At(corner.X+x, corner.Y+y)).(color.Gray16)
				w[y*size+x] = float32(gray.Y)
			}
		}
	}

	return nil
}

// ExtractFile loads an image and extracts windows around the candidates
func ExtractFile(path string, candidates []models.Candidate, buf *buffers.FitBuffers) error {
	img, err := LoadImage(path)
	if err != nil {
		return err
	}
	return Extract(img, candidates, buf)
}
