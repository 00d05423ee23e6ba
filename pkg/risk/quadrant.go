// Package risk classifies rescaled suitability pairs into the four
// quadrant categories used by the spotted lanternfly risk maps.
package risk

import (
	"math"

	"github.com/pkg/errors"
)

// Category is the ordinal risk label assigned from a sample's rescaled
// coarse-scale (x) and fine-scale (y) suitability scores.
type Category string

// Risk categories, highest to lowest.
const (
	CategoryExtreme  Category = "extreme"
	CategoryHigh     Category = "high"
	CategoryModerate Category = "moderate"
	CategoryLow      Category = "low"
)

// Categories lists all labels in descending rank order.
var Categories = []Category{CategoryExtreme, CategoryHigh, CategoryModerate, CategoryLow}

// Rank returns the ordinal position of the category, low = 0 up to
// extreme = 3. Unknown labels rank -1.
func (c Category) Rank() int {
	switch c {
	case CategoryLow:
		return 0
	case CategoryModerate:
		return 1
	case CategoryHigh:
		return 2
	case CategoryExtreme:
		return 3
	}
	return -1
}

// Classify assigns a risk quadrant from a rescaled score pair. Rules:
//   - extreme:  x >= threshX and y >= threshY (both models agree suitable)
//   - high:     x <  threshX and y >= threshY (fine scale only)
//   - moderate: x >= threshX and y <  threshY (coarse scale only)
//   - low:      x <  threshX and y <  threshY (both unsuitable)
//
// Equality with a threshold counts as suitable on that axis. Non-finite
// input is rejected.
func Classify(x, y, threshX, threshY float64) (Category, error) {
	for _, v := range []float64{x, y, threshX, threshY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", errors.Errorf("classify input is not finite: (%f, %f) vs (%f, %f)", x, y, threshX, threshY)
		}
	}

	switch {
	case x >= threshX && y >= threshY:
		return CategoryExtreme, nil
	case x < threshX && y >= threshY:
		return CategoryHigh, nil
	case x >= threshX && y < threshY:
		return CategoryModerate, nil
	default:
		return CategoryLow, nil
	}
}

// Pair couples the two rescaled scores of one sample.
type Pair struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClassifyAll maps Classify over a sample slice.
func ClassifyAll(pairs []Pair, threshX, threshY float64) ([]Category, error) {
	out := make([]Category, 0, len(pairs))
	for i, p := range pairs {
		c, err := Classify(p.X, p.Y, threshX, threshY)
		if err != nil {
			return nil, errors.Wrapf(err, "pair %d", i)
		}
		out = append(out, c)
	}
	return out, nil
}
