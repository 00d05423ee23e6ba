package scale

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfRange is returned when a threshold falls outside the
	// calibration table coverage and clamping is not enabled.
	ErrOutOfRange = errors.New("value out of interpolation range")
)

// Row is a single calibration entry: the exponential base fitted for one
// candidate decision threshold.
type Row struct {
	Threshold float64 `json:"threshold"`
	C2        float64 `json:"c2"`
}

// Table maps MTSS decision thresholds to fitted exponential bases over a
// fine grid. Lookups between grid nodes are linearly interpolated. The
// table is immutable after construction and safe for concurrent readers.
type Table struct {
	thresholds []float64
	coeffs     []float64
	clamp      bool
}

// NewTable builds a calibration table from rows. Rows are sorted by
// threshold; thresholds must be unique, finite, and in (0,1). When clamp
// is set, lookups outside the covered range resolve to the nearest
// in-range coefficient instead of failing. The exponential fit is never
// extrapolated.
func NewTable(rows []Row, clamp bool) (*Table, error) {
	if len(rows) == 0 {
		return nil, errors.New("calibration table requires at least one row")
	}

	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold < sorted[j].Threshold })

	t := &Table{
		thresholds: make([]float64, 0, len(sorted)),
		coeffs:     make([]float64, 0, len(sorted)),
		clamp:      clamp,
	}

	for i, r := range sorted {
		if !isFinite(r.Threshold) || !isFinite(r.C2) {
			return nil, errors.Errorf("calibration row %d is not finite: %v", i, r)
		}
		if r.Threshold <= 0 || r.Threshold >= 1 {
			return nil, errors.Errorf("calibration threshold must be in (0,1), got: %f", r.Threshold)
		}
		if r.C2 <= 0 {
			return nil, errors.Errorf("calibration coefficient must be positive, got: %f", r.C2)
		}
		if i > 0 && r.Threshold == sorted[i-1].Threshold {
			return nil, errors.Errorf("duplicate calibration threshold: %f", r.Threshold)
		}
		t.thresholds = append(t.thresholds, r.Threshold)
		t.coeffs = append(t.coeffs, r.C2)
	}

	return t, nil
}

// BuildTable generates a calibration table by solving the curve anchor
// equation c2^t = (c2+1)/2 for every threshold on the [min,max] grid.
// At grid nodes the resulting rescaler maps the threshold to 0.5 at
// machine precision.
func BuildTable(min, max, step float64, clamp bool) (*Table, error) {
	if !isFinite(min) || !isFinite(max) || !isFinite(step) {
		return nil, errors.New("grid bounds must be finite")
	}
	if min <= 0 || max >= 1 || min > max {
		return nil, errors.Errorf("grid must satisfy 0 < min <= max < 1, got: [%f, %f]", min, max)
	}
	if step <= 0 {
		return nil, errors.Errorf("grid step must be positive, got: %f", step)
	}

	rows := make([]Row, 0, int((max-min)/step)+1)
	for i := 0; ; i++ {
		t := min + float64(i)*step
		if t > max+step/2 {
			break
		}
		if t >= 1 {
			break
		}
		rows = append(rows, Row{Threshold: t, C2: solveBase(t)})
	}

	return NewTable(rows, clamp)
}

// Coefficient resolves the exponential base for a threshold, linearly
// interpolating between grid nodes. Out-of-range thresholds fail with
// ErrOutOfRange unless the table was built with clamping.
func (t *Table) Coefficient(threshold float64) (float64, error) {
	if !isFinite(threshold) {
		return 0, errors.Errorf("threshold is not finite: %f", threshold)
	}

	n := len(t.thresholds)
	if threshold < t.thresholds[0] || threshold > t.thresholds[n-1] {
		if !t.clamp {
			return 0, errors.Wrapf(ErrOutOfRange, "threshold %f outside [%f, %f]",
				threshold, t.thresholds[0], t.thresholds[n-1])
		}
		if threshold < t.thresholds[0] {
			return t.coeffs[0], nil
		}
		return t.coeffs[n-1], nil
	}

	i := sort.SearchFloat64s(t.thresholds, threshold)
	if i < n && t.thresholds[i] == threshold {
		return t.coeffs[i], nil
	}

	lo, hi := i-1, i
	frac := (threshold - t.thresholds[lo]) / (t.thresholds[hi] - t.thresholds[lo])
	return t.coeffs[lo] + frac*(t.coeffs[hi]-t.coeffs[lo]), nil
}

// Min returns the lowest threshold the table covers.
func (t *Table) Min() float64 {
	return t.thresholds[0]
}

// Max returns the highest threshold the table covers.
func (t *Table) Max() float64 {
	return t.thresholds[len(t.thresholds)-1]
}

// Len returns the number of grid nodes.
func (t *Table) Len() int {
	return len(t.thresholds)
}

// Clamped reports whether out-of-range lookups resolve to the nearest
// in-range coefficient.
func (t *Table) Clamped() bool {
	return t.clamp
}

// Rows returns a copy of the table entries in threshold order.
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.thresholds))
	for i := range t.thresholds {
		rows[i] = Row{Threshold: t.thresholds[i], C2: t.coeffs[i]}
	}
	return rows
}

// solveBase finds the non-trivial root of c2^t - (c2+1)/2 for a threshold
// in (0,1). The root sits in (0,1) for t < 0.5 and above 1 for t > 0.5;
// t == 0.5 is the degenerate identity transform (c2 -> 1).
func solveBase(t float64) float64 {
	const (
		iterations = 200
		identityEp = 1e-9
	)

	if math.Abs(t-0.5) < identityEp {
		return 1
	}

	anchor := func(c2 float64) float64 {
		return math.Pow(c2, t) - (c2+1)/2
	}

	// The non-trivial root sits below 1 for t < 0.5 and above 1 for
	// t > 0.5. Brackets: c2 = 0.25^(1/t) gives c2^t = 0.25 < (c2+1)/2,
	// and c2 = 4^(1/(1-t)) gives c2^t = c2/4 < (c2+1)/2, so anchor is
	// negative there; anchor is positive just inside 1 on either side.
	var lo, hi float64
	if t < 0.5 {
		lo = math.Pow(0.25, 1/t)
		hi = 1 - 1e-12
	} else {
		lo = 1 + 1e-12
		hi = math.Max(2, math.Pow(4, 1/(1-t)))
		for anchor(hi) > 0 {
			hi *= 2
		}
	}

	for i := 0; i < iterations; i++ {
		mid := (lo + hi) / 2
		f := anchor(mid)
		flo := anchor(lo)
		if f == 0 {
			return mid
		}
		if (f < 0) == (flo < 0) {
			lo = mid
		} else {
			hi = mid
		}
	}

	return (lo + hi) / 2
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
