// Package pipeline runs the rescale/classify sequence the analysis
// repeats per dataset: load raw score pairs, rescale both model axes
// around their thresholds, assign risk quadrants, persist.
package pipeline

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ieco-lab/scarifSDM/pkg/data"
	"github.com/ieco-lab/scarifSDM/pkg/risk"
	"github.com/ieco-lab/scarifSDM/pkg/scale"
)

// Params selects what one pipeline run operates on. Snapshots left empty
// means every snapshot present for the dataset.
type Params struct {
	Dataset         string   `json:"dataset" yaml:"dataset"`
	CoarseModel     string   `json:"coarse_model" yaml:"coarse_model"`
	CoarseThreshold string   `json:"coarse_threshold" yaml:"coarse_threshold"`
	FineModel       string   `json:"fine_model" yaml:"fine_model"`
	FineThreshold   string   `json:"fine_threshold" yaml:"fine_threshold"`
	Snapshots       []string `json:"snapshots,omitempty" yaml:"snapshots,omitempty"`
}

// Validate checks that the required selectors are present.
func (p *Params) Validate() error {
	if p.Dataset == "" {
		return errors.New("dataset is required")
	}
	if p.CoarseModel == "" || p.FineModel == "" {
		return errors.New("coarse and fine models are required")
	}
	if p.CoarseThreshold == "" || p.FineThreshold == "" {
		return errors.New("coarse and fine threshold names are required")
	}
	return nil
}

// SnapshotResult summarizes one classified snapshot.
type SnapshotResult struct {
	Snapshot string                `json:"snapshot"`
	Samples  int                   `json:"samples"`
	Counts   map[risk.Category]int `json:"counts"`
}

// Result summarizes one dataset run. The rescaled threshold references
// are the values a plot draws its quadrant lines at; by construction of
// the rescaler both are 0.5.
type Result struct {
	Dataset         string            `json:"dataset"`
	CoarseThreshold float64           `json:"coarse_threshold"`
	FineThreshold   float64           `json:"fine_threshold"`
	CoarseRef       float64           `json:"coarse_ref"`
	FineRef         float64           `json:"fine_ref"`
	Snapshots       []*SnapshotResult `json:"snapshots"`
	Duration        string            `json:"duration"`
}

// Run executes the pipeline for one dataset: resolve both named
// thresholds, build both rescalers from the shared calibration table,
// then rescale, classify, and persist every snapshot.
func Run(ctx context.Context, db *sql.DB, table *scale.Table, p *Params) (*Result, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if table == nil {
		return nil, errors.New("calibration table is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	coarseT, err := data.GetThreshold(db, p.CoarseModel, p.CoarseThreshold)
	if err != nil {
		return nil, errors.Wrapf(err, "coarse threshold %s/%s", p.CoarseModel, p.CoarseThreshold)
	}
	fineT, err := data.GetThreshold(db, p.FineModel, p.FineThreshold)
	if err != nil {
		return nil, errors.Wrapf(err, "fine threshold %s/%s", p.FineModel, p.FineThreshold)
	}

	coarse, err := scale.NewRescaler(coarseT, table)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build coarse rescaler")
	}
	fine, err := scale.NewRescaler(fineT, table)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build fine rescaler")
	}

	coarseRef, err := coarse.RescaleThresholds(coarseT)
	if err != nil {
		return nil, err
	}
	fineRef, err := fine.RescaleThresholds(fineT)
	if err != nil {
		return nil, err
	}

	snapshots := p.Snapshots
	if len(snapshots) == 0 {
		snapshots, err = data.ListSnapshots(db, p.Dataset)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list snapshots for %s", p.Dataset)
		}
	}
	if len(snapshots) == 0 {
		return nil, errors.Errorf("no snapshots found for dataset: %s", p.Dataset)
	}

	res := &Result{
		Dataset:         p.Dataset,
		CoarseThreshold: coarseT,
		FineThreshold:   fineT,
		CoarseRef:       coarseRef[0],
		FineRef:         fineRef[0],
		Snapshots:       make([]*SnapshotResult, 0, len(snapshots)),
	}

	for _, snap := range snapshots {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		sr, err := runSnapshot(db, coarse, fine, p, snap)
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot %s", snap)
		}
		res.Snapshots = append(res.Snapshots, sr)
	}

	res.Duration = time.Since(start).String()

	return res, nil
}

func runSnapshot(db *sql.DB, coarse, fine *scale.Rescaler, p *Params, snapshot string) (*SnapshotResult, error) {
	pairs, err := data.GetScorePairs(db, p.Dataset, snapshot, p.CoarseModel, p.FineModel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load score pairs")
	}
	if len(pairs) == 0 {
		return nil, errors.Errorf("no score pairs for models %s/%s", p.CoarseModel, p.FineModel)
	}

	rows := make([]*data.RiskRow, 0, len(pairs))
	counts := make(map[risk.Category]int, len(risk.Categories))

	for _, pair := range pairs {
		x, err := coarse.Apply(pair.Coarse)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %s coarse", pair.SampleID)
		}
		y, err := fine.Apply(pair.Fine)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %s fine", pair.SampleID)
		}

		// classify against the fixed rescaled midpoint, the same axis
		// constant the crossing filter uses; the pushed-through refs
		// in Result only differ from it off the calibration grid
		cat, err := risk.Classify(x, y, scale.RescaledThreshold, scale.RescaledThreshold)
		if err != nil {
			return nil, errors.Wrapf(err, "sample %s", pair.SampleID)
		}

		counts[cat]++
		rows = append(rows, &data.RiskRow{
			SampleID: pair.SampleID,
			Snapshot: snapshot,
			XScore:   x,
			YScore:   y,
			Category: cat,
		})
	}

	if err := data.SaveRisk(db, p.Dataset, snapshot, rows); err != nil {
		return nil, errors.Wrap(err, "failed to save risk rows")
	}

	return &SnapshotResult{
		Snapshot: snapshot,
		Samples:  len(rows),
		Counts:   counts,
	}, nil
}

// RunAll executes one pipeline run per params entry concurrently, sharing
// the read-only calibration table. The first failure cancels the rest.
// Results keep the input order.
func RunAll(ctx context.Context, db *sql.DB, table *scale.Table, params []*Params) ([]*Result, error) {
	if len(params) == 0 {
		return nil, errors.New("at least one run is required")
	}

	results := make([]*Result, len(params))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			r, err := Run(ctx, db, table, p)
			if err != nil {
				return errors.Wrapf(err, "dataset %s", p.Dataset)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
