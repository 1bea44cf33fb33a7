package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Candidate is the centre of a fitting window in a camera frame
type Candidate struct {
	// Frame is the index of the image in the acquisition sequence
	Frame int

	// X and Y are the pixel coordinates of the window centre
	X, Y int
}

// ParseCandidates reads a list of "x,y" pairs separated by semicolons.
// All candidates are assigned to the given frame.
func ParseCandidates(s string, frame int) ([]Candidate, error) {
	var candidates []Candidate

	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid candidate %q: expected x,y", pair)
		}

		x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid x in candidate %q: %w", pair, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid y in candidate %q: %w", pair, err)
		}

		candidates = append(candidates, Candidate{Frame: frame, X: x, Y: y})
	}

	return candidates, nil
}
