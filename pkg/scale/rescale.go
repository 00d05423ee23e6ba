package scale

import (
	"math"

	"github.com/pkg/errors"
)

// RescaledThreshold is the image of any decision threshold under its own
// rescaler: the transform is constructed so the threshold lands here.
const RescaledThreshold = 0.5

// ErrScoreOutOfRange is returned when a raw suitability score falls
// outside [0,1] or is not finite. Scores are rejected, never clamped.
var ErrScoreOutOfRange = errors.New("score out of range")

// Series is a labeled vector of rescaled suitability scores.
type Series struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Rescaler maps raw cloglog suitability onto a risk scale where the
// decision threshold sits at exactly 0.5 while 0 and 1 stay anchored.
// The curve is f(x) = (c2^x - 1)/(c2 - 1) with c2 resolved from the
// calibration table for the chosen threshold.
type Rescaler struct {
	threshold float64
	c2        float64
}

// NewRescaler resolves the exponential base for the threshold from the
// calibration table.
func NewRescaler(threshold float64, table *Table) (*Rescaler, error) {
	if table == nil {
		return nil, errors.New("calibration table required")
	}
	if !isFinite(threshold) || threshold <= 0 || threshold >= 1 {
		return nil, errors.Errorf("threshold must be in (0,1), got: %f", threshold)
	}

	c2, err := table.Coefficient(threshold)
	if err != nil {
		return nil, err
	}

	return &Rescaler{threshold: threshold, c2: c2}, nil
}

// Threshold returns the raw decision threshold the rescaler was built for.
func (r *Rescaler) Threshold() float64 {
	return r.threshold
}

// Apply transforms a single raw score. Scores outside [0,1] or non-finite
// values are rejected.
func (r *Rescaler) Apply(x float64) (float64, error) {
	if !isFinite(x) || x < 0 || x > 1 {
		return 0, errors.Wrapf(ErrScoreOutOfRange, "score: %f", x)
	}
	return r.apply(x), nil
}

func (r *Rescaler) apply(x float64) float64 {
	const identityEp = 1e-9

	// c2 -> 1 is the t == 0.5 limit where the curve degenerates to
	// the identity.
	if math.Abs(r.c2-1) < identityEp {
		return x
	}
	return (math.Pow(r.c2, x) - 1) / (r.c2 - 1)
}

// Rescale transforms a score vector into a new labeled series. The input
// is not modified.
func (r *Rescaler) Rescale(scores []float64, label string) (*Series, error) {
	s := &Series{
		Label:  label,
		Values: make([]float64, 0, len(scores)),
	}

	for i, x := range scores {
		y, err := r.Apply(x)
		if err != nil {
			return nil, errors.Wrapf(err, "score %d", i)
		}
		s.Values = append(s.Values, y)
	}

	return s, nil
}

// RescaleThresholds pushes raw threshold values through the same curve so
// reference lines drawn against rescaled data are expressed in rescaled
// units. The rescaler's own threshold maps to 0.5.
func (r *Rescaler) RescaleThresholds(thresholds ...float64) ([]float64, error) {
	out := make([]float64, 0, len(thresholds))
	for i, t := range thresholds {
		y, err := r.Apply(t)
		if err != nil {
			return nil, errors.Wrapf(err, "threshold %d", i)
		}
		out = append(out, y)
	}
	return out, nil
}
