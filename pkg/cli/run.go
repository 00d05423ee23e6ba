package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ieco-lab/scarifSDM/pkg/config"
	"github.com/ieco-lab/scarifSDM/pkg/data"
	"github.com/ieco-lab/scarifSDM/pkg/pipeline"
)

var (
	coarseFlag = &cli.StringFlag{
		Name:  "coarse",
		Usage: "Coarse-scale model and threshold name (MODEL/THRESHOLD, e.g. global/mtss)",
	}

	fineFlag = &cli.StringFlag{
		Name:  "fine",
		Usage: "Fine-scale model and threshold name (MODEL/THRESHOLD, e.g. regional/mtss)",
	}

	snapshotFlag = &cli.StringSliceFlag{
		Name:  "snapshot",
		Usage: "Time snapshot to process (can be specified multiple times, default: all)",
	}

	clampFlag = &cli.BoolFlag{
		Name:  "clamp",
		Usage: "Resolve thresholds outside the calibration range to the nearest in-range coefficient instead of failing",
	}

	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to a yaml run spec (multi-dataset run)",
	}

	runDatasetFlag = &cli.StringFlag{
		Name:  "dataset",
		Usage: "Name of the occurrence dataset",
	}

	runCmd = &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Rescale suitability and classify samples into risk quadrants",
		UsageText: `scarif run --dataset us-populations --coarse global/mtss --fine regional/mtss
   scarif run --config runs.yaml`,
		Action: cmdRun,
		Flags: []cli.Flag{
			runDatasetFlag,
			coarseFlag,
			fineFlag,
			snapshotFlag,
			clampFlag,
			configFlag,
		},
	}
)

// parseModelRef splits a MODEL/THRESHOLD flag value.
func parseModelRef(val string) (model, threshold string, err error) {
	model, threshold, ok := strings.Cut(val, "/")
	if !ok || model == "" || threshold == "" {
		return "", "", fmt.Errorf("expected MODEL/THRESHOLD, got: %q", val)
	}
	return model, threshold, nil
}

func cmdRun(c *cli.Context) error {
	cfg := getConfig(c)
	ctx := context.Background()

	if path := c.String(configFlag.Name); path != "" {
		return runFromConfig(ctx, c, path)
	}

	dataset := c.String(runDatasetFlag.Name)
	if dataset == "" {
		return cli.ShowSubcommandHelp(c)
	}

	coarseModel, coarseThresh, err := parseModelRef(c.String(coarseFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", coarseFlag.Name, err)
	}
	fineModel, fineThresh, err := parseModelRef(c.String(fineFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", fineFlag.Name, err)
	}

	table, err := data.GetCalibration(cfg.DB, c.Bool(clampFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to load calibration table: %w", err)
	}

	p := &pipeline.Params{
		Dataset:         dataset,
		CoarseModel:     coarseModel,
		CoarseThreshold: coarseThresh,
		FineModel:       fineModel,
		FineThreshold:   fineThresh,
		Snapshots:       c.StringSlice(snapshotFlag.Name),
	}

	slog.Info("running pipeline",
		"dataset", dataset,
		"coarse", coarseModel,
		"fine", fineModel,
	)

	res, err := pipeline.Run(ctx, cfg.DB, table, p)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}

func runFromConfig(ctx context.Context, c *cli.Context, path string) error {
	cfg := getConfig(c)

	spec, err := config.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read run spec: %w", err)
	}

	clamp := spec.Clamp || c.Bool(clampFlag.Name)
	table, err := data.GetCalibration(cfg.DB, clamp)
	if err != nil {
		return fmt.Errorf("failed to load calibration table: %w", err)
	}

	slog.Info("running pipeline from config", "path", path, "runs", len(spec.Runs))

	results, err := pipeline.RunAll(ctx, cfg.DB, table, spec.Runs)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	if err := encode(results); err != nil {
		return fmt.Errorf("error encoding results: %w", err)
	}

	return nil
}
