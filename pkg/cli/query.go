package cli

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/ieco-lab/scarifSDM/pkg/data"
	"github.com/ieco-lab/scarifSDM/pkg/risk"
	"github.com/ieco-lab/scarifSDM/pkg/scale"
)

const importLogLimitDefault = 20

var (
	queryDatasetFlag = &cli.StringFlag{
		Name:     "dataset",
		Usage:    "Name of the occurrence dataset",
		Required: true,
	}

	fromSnapshotFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "Historical snapshot label",
		Required: true,
	}

	toSnapshotFlag = &cli.StringFlag{
		Name:     "to",
		Usage:    "Future snapshot label",
		Required: true,
	}

	queryCmd = &cli.Command{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "List data query operations",
		Subcommands: []*cli.Command{
			{
				Name:    "categories",
				Usage:   "Count classified samples per risk category and snapshot",
				Aliases: []string{"c"},
				Action:  cmdQueryCategories,
				Flags: []cli.Flag{
					queryDatasetFlag,
				},
			},
			{
				Name:    "crossings",
				Usage:   "List samples whose trajectory crosses a threshold axis between two snapshots",
				Aliases: []string{"x"},
				Action:  cmdQueryCrossings,
				Flags: []cli.Flag{
					queryDatasetFlag,
					fromSnapshotFlag,
					toSnapshotFlag,
				},
			},
			{
				Name:    "thresholds",
				Usage:   "List imported threshold records",
				Aliases: []string{"t"},
				Action:  cmdQueryThresholds,
			},
			{
				Name:    "state",
				Usage:   "Show database row counts and recent imports",
				Aliases: []string{"s"},
				Action:  cmdQueryState,
			},
		},
	}
)

// CrossingFlag is the per-sample output of the crossing filter.
type CrossingFlag struct {
	SampleID string  `json:"sample_id"`
	HX       float64 `json:"hx"`
	HY       float64 `json:"hy"`
	FX       float64 `json:"fx"`
	FY       float64 `json:"fy"`
	Crossed  bool    `json:"crossed"`
}

// CrossingResult summarizes the crossing filter over a snapshot pair.
type CrossingResult struct {
	Dataset string          `json:"dataset"`
	From    string          `json:"from"`
	To      string          `json:"to"`
	Total   int             `json:"total"`
	Crossed int             `json:"crossed"`
	Samples []*CrossingFlag `json:"samples"`
}

// StateResult combines row counts with recent import history.
type StateResult struct {
	Counts  map[string]int64     `json:"counts"`
	Imports []*data.ImportRecord `json:"imports"`
}

func cmdQueryCategories(c *cli.Context) error {
	dataset := c.String(queryDatasetFlag.Name)
	cfg := getConfig(c)

	slog.Debug("query categories", "dataset", dataset)
	list, err := data.GetCategoryCounts(cfg.DB, dataset)
	if err != nil {
		return fmt.Errorf("failed to query categories: %w", err)
	}

	if err := encode(list); err != nil {
		return fmt.Errorf("error encoding list: %w", err)
	}

	return nil
}

func cmdQueryCrossings(c *cli.Context) error {
	dataset := c.String(queryDatasetFlag.Name)
	from := c.String(fromSnapshotFlag.Name)
	to := c.String(toSnapshotFlag.Name)

	cfg := getConfig(c)

	res, err := queryCrossings(cfg.DB, dataset, from, to)
	if err != nil {
		return err
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}

func queryCrossings(db *sql.DB, dataset, from, to string) (*CrossingResult, error) {
	slog.Debug("query crossings", "dataset", dataset, "from", from, "to", to)

	pairs, err := data.GetRiskPairs(db, dataset, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk pairs: %w", err)
	}

	res := &CrossingResult{
		Dataset: dataset,
		From:    from,
		To:      to,
		Total:   len(pairs),
		Samples: make([]*CrossingFlag, 0, len(pairs)),
	}

	// stored scores are rescaled, so both axis thresholds sit at the
	// rescaled midpoint; classification uses the same constant
	for _, p := range pairs {
		crossed := risk.Crossed(p.HX, p.HY, p.FX, p.FY, scale.RescaledThreshold, scale.RescaledThreshold)
		if crossed {
			res.Crossed++
		}
		res.Samples = append(res.Samples, &CrossingFlag{
			SampleID: p.SampleID,
			HX:       p.HX,
			HY:       p.HY,
			FX:       p.FX,
			FY:       p.FY,
			Crossed:  crossed,
		})
	}

	return res, nil
}

func cmdQueryThresholds(c *cli.Context) error {
	cfg := getConfig(c)

	list, err := data.ListThresholds(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to query thresholds: %w", err)
	}

	if err := encode(list); err != nil {
		return fmt.Errorf("error encoding list: %w", err)
	}

	return nil
}

func cmdQueryState(c *cli.Context) error {
	cfg := getConfig(c)

	counts, err := data.GetDataState(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to query data state: %w", err)
	}

	imports, err := data.ListImports(cfg.DB, importLogLimitDefault)
	if err != nil {
		return fmt.Errorf("failed to query import log: %w", err)
	}

	res := &StateResult{
		Counts:  counts,
		Imports: imports,
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}
