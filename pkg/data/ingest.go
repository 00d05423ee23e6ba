package data

import (
	"database/sql"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ieco-lab/scarifSDM/pkg/scale"
)

// Import kinds recorded in the ingest log.
const (
	ImportKindSamples     = "samples"
	ImportKindThresholds  = "thresholds"
	ImportKindCalibration = "calibration"
)

var (
	samplesHeader     = []string{"id", "x", "y", "model", "snapshot", "suitability"}
	thresholdsHeader  = []string{"model", "name", "value"}
	calibrationHeader = []string{"threshold", "c2"}
)

// ImportSummary describes one completed ingest operation.
type ImportSummary struct {
	Kind     string `json:"kind"`
	Name     string `json:"name,omitempty"`
	Samples  int    `json:"samples,omitempty"`
	Rows     int    `json:"rows"`
	Duration string `json:"duration"`
}

// ImportSamples parses a long-format samples CSV
// (id,x,y,model,snapshot,suitability) and persists both the occurrence
// points and their raw scores. Parse failures leave the database
// untouched.
func ImportSamples(db *sql.DB, dataset string, r io.Reader) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if dataset == "" {
		return nil, errors.New("dataset is required")
	}

	start := time.Now()

	samples, scores, err := ReadSamplesCSV(r)
	if err != nil {
		return nil, err
	}

	if err := SaveSamples(db, dataset, samples); err != nil {
		return nil, errors.Wrap(err, "failed to save samples")
	}
	if err := SaveSuitability(db, dataset, scores); err != nil {
		return nil, errors.Wrap(err, "failed to save suitability scores")
	}
	if err := LogImport(db, ImportKindSamples, dataset, len(scores)); err != nil {
		return nil, errors.Wrap(err, "failed to log import")
	}

	return &ImportSummary{
		Kind:     ImportKindSamples,
		Name:     dataset,
		Samples:  len(samples),
		Rows:     len(scores),
		Duration: time.Since(start).String(),
	}, nil
}

// ImportThresholds parses a thresholds CSV (model,name,value) and
// persists the records.
func ImportThresholds(db *sql.DB, r io.Reader) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	start := time.Now()

	list, err := ReadThresholdsCSV(r)
	if err != nil {
		return nil, err
	}

	if err := SaveThresholds(db, list); err != nil {
		return nil, errors.Wrap(err, "failed to save thresholds")
	}
	if err := LogImport(db, ImportKindThresholds, "", len(list)); err != nil {
		return nil, errors.Wrap(err, "failed to log import")
	}

	return &ImportSummary{
		Kind:     ImportKindThresholds,
		Rows:     len(list),
		Duration: time.Since(start).String(),
	}, nil
}

// ImportCalibration parses a calibration CSV (threshold,c2) and persists
// the rows. The rows are validated by building a table from them first.
func ImportCalibration(db *sql.DB, r io.Reader) (*ImportSummary, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	start := time.Now()

	rows, err := ReadCalibrationCSV(r)
	if err != nil {
		return nil, err
	}
	if _, err := scale.NewTable(rows, false); err != nil {
		return nil, errors.Wrap(err, "invalid calibration table")
	}

	if err := SaveCalibration(db, rows); err != nil {
		return nil, errors.Wrap(err, "failed to save calibration")
	}
	if err := LogImport(db, ImportKindCalibration, "", len(rows)); err != nil {
		return nil, errors.Wrap(err, "failed to log import")
	}

	return &ImportSummary{
		Kind:     ImportKindCalibration,
		Rows:     len(rows),
		Duration: time.Since(start).String(),
	}, nil
}

// ReadSamplesCSV parses the long-format samples file. Each row carries
// one raw score for one sample/model/snapshot combination; coordinates
// repeated across rows for the same id must agree.
func ReadSamplesCSV(r io.Reader) ([]*Sample, []*Suitability, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	if err := readHeader(cr, samplesHeader); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]*Sample)
	samples := make([]*Sample, 0)
	scores := make([]*Suitability, 0)

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d", line)
		}

		id := strings.TrimSpace(rec[0])
		if id == "" {
			return nil, nil, errors.Errorf("line %d: empty sample id", line)
		}

		x, err := parseFloat(rec[1], "x", line)
		if err != nil {
			return nil, nil, err
		}
		y, err := parseFloat(rec[2], "y", line)
		if err != nil {
			return nil, nil, err
		}

		model := strings.TrimSpace(rec[3])
		snapshot := strings.TrimSpace(rec[4])
		if model == "" || snapshot == "" {
			return nil, nil, errors.Errorf("line %d: model and snapshot are required", line)
		}

		raw, err := parseFloat(rec[5], "suitability", line)
		if err != nil {
			return nil, nil, err
		}
		if raw < 0 || raw > 1 {
			return nil, nil, errors.Errorf("line %d: suitability must be in [0,1], got: %f", line, raw)
		}

		if prev, ok := seen[id]; ok {
			if prev.X != x || prev.Y != y {
				return nil, nil, errors.Errorf("line %d: conflicting coordinates for sample %s", line, id)
			}
		} else {
			s := &Sample{ID: id, X: x, Y: y}
			seen[id] = s
			samples = append(samples, s)
		}

		scores = append(scores, &Suitability{
			SampleID: id,
			Model:    model,
			Snapshot: snapshot,
			Raw:      raw,
		})
	}

	if len(scores) == 0 {
		return nil, nil, errors.New("no sample rows found")
	}

	return samples, scores, nil
}

// ReadThresholdsCSV parses the model,name,value threshold file.
func ReadThresholdsCSV(r io.Reader) ([]*Threshold, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	if err := readHeader(cr, thresholdsHeader); err != nil {
		return nil, err
	}

	list := make([]*Threshold, 0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		model := strings.TrimSpace(rec[0])
		name := strings.TrimSpace(rec[1])
		if model == "" || name == "" {
			return nil, errors.Errorf("line %d: model and name are required", line)
		}

		v, err := parseFloat(rec[2], "value", line)
		if err != nil {
			return nil, err
		}
		if v <= 0 || v >= 1 {
			return nil, errors.Errorf("line %d: threshold must be in (0,1), got: %f", line, v)
		}

		list = append(list, &Threshold{Model: model, Name: name, Value: v})
	}

	if len(list) == 0 {
		return nil, errors.New("no threshold rows found")
	}

	return list, nil
}

// ReadCalibrationCSV parses the threshold,c2 calibration file.
func ReadCalibrationCSV(r io.Reader) ([]scale.Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	if err := readHeader(cr, calibrationHeader); err != nil {
		return nil, err
	}

	rows := make([]scale.Row, 0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		t, err := parseFloat(rec[0], "threshold", line)
		if err != nil {
			return nil, err
		}
		c2, err := parseFloat(rec[1], "c2", line)
		if err != nil {
			return nil, err
		}

		rows = append(rows, scale.Row{Threshold: t, C2: c2})
	}

	if len(rows) == 0 {
		return nil, errors.New("no calibration rows found")
	}

	return rows, nil
}

func readHeader(cr *csv.Reader, expected []string) error {
	rec, err := cr.Read()
	if err != nil {
		return errors.Wrap(err, "failed to read header")
	}
	if len(rec) != len(expected) {
		return errors.Errorf("expected header %v, got: %v", expected, rec)
	}
	for i, col := range expected {
		if !strings.EqualFold(strings.TrimSpace(rec[i]), col) {
			return errors.Errorf("expected header %v, got: %v", expected, rec)
		}
	}
	return nil
}

func parseFloat(field, name string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, errors.Errorf("line %d: invalid %s: %q", line, name, field)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("line %d: %s is not finite: %q", line, name, field)
	}
	return v, nil
}
