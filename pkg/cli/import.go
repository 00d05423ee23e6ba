package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ieco-lab/scarifSDM/pkg/data"
	"github.com/ieco-lab/scarifSDM/pkg/net"
	"github.com/ieco-lab/scarifSDM/pkg/scale"
)

var (
	fileFlag = &cli.StringFlag{
		Name:  "file",
		Usage: "Path to the local CSV file",
	}

	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "URL of the CSV file to download",
	}

	datasetFlag = &cli.StringFlag{
		Name:     "dataset",
		Usage:    "Name of the occurrence dataset (e.g. us-populations)",
		Required: true,
	}

	importCmd = &cli.Command{
		Name:    "import",
		Aliases: []string{"i"},
		Usage:   "Import SDM outputs (samples, thresholds, calibration)",
		UsageText: `scarif import samples --dataset us-populations --file suitability.csv
   scarif import thresholds --file mtss.csv
   scarif import calibration --url https://example.org/calibration.csv`,
		Subcommands: []*cli.Command{
			{
				Name:    "samples",
				Usage:   "Import occurrence points with raw suitability scores (id,x,y,model,snapshot,suitability)",
				Aliases: []string{"s"},
				Action:  cmdImportSamples,
				Flags: []cli.Flag{
					datasetFlag,
					fileFlag,
					urlFlag,
				},
			},
			{
				Name:    "thresholds",
				Usage:   "Import named MTSS decision thresholds (model,name,value)",
				Aliases: []string{"t"},
				Action:  cmdImportThresholds,
				Flags: []cli.Flag{
					fileFlag,
					urlFlag,
				},
			},
			{
				Name:    "calibration",
				Usage:   "Import the exponential calibration table (threshold,c2)",
				Aliases: []string{"c"},
				Action:  cmdImportCalibration,
				Flags: []cli.Flag{
					fileFlag,
					urlFlag,
				},
			},
		},
	}

	gridMinFlag = &cli.Float64Flag{
		Name:  "min",
		Usage: "Lowest threshold on the calibration grid",
		Value: 0.01,
	}

	gridMaxFlag = &cli.Float64Flag{
		Name:  "max",
		Usage: "Highest threshold on the calibration grid",
		Value: 0.99,
	}

	gridStepFlag = &cli.Float64Flag{
		Name:  "step",
		Usage: "Calibration grid step",
		Value: 0.001,
	}

	calibrationCmd = &cli.Command{
		Name:  "calibration",
		Usage: "Calibration table operations",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate and store a calibration table by fitting the exponential base per grid threshold",
				Action: cmdGenerateCalibration,
				Flags: []cli.Flag{
					gridMinFlag,
					gridMaxFlag,
					gridStepFlag,
				},
			},
		},
	}
)

// openInput resolves the --file/--url pair into a reader. URL input is
// downloaded to a temp file first. The returned cleanup is never nil.
func openInput(c *cli.Context) (io.ReadCloser, func(), error) {
	file := c.String(fileFlag.Name)
	url := c.String(urlFlag.Name)

	if (file == "") == (url == "") {
		return nil, func() {}, fmt.Errorf("exactly one of --%s or --%s is required", fileFlag.Name, urlFlag.Name)
	}

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, func() {}, fmt.Errorf("error opening file: %s: %w", file, err)
		}
		return f, func() {}, nil
	}

	tmp, err := os.CreateTemp("", "scarif")
	if err != nil {
		return nil, func() {}, fmt.Errorf("error creating temp file: %w", err)
	}
	tmp.Close()

	slog.Debug("downloading", "url", url, "path", tmp.Name())
	if err := net.Download(url, tmp.Name()); err != nil {
		os.Remove(tmp.Name())
		return nil, func() {}, fmt.Errorf("error downloading file: %s: %w", url, err)
	}

	f, err := os.Open(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return nil, func() {}, fmt.Errorf("error opening downloaded file: %w", err)
	}

	return f, func() { os.Remove(tmp.Name()) }, nil
}

func cmdImportSamples(c *cli.Context) error {
	dataset := c.String(datasetFlag.Name)

	in, cleanup, err := openInput(c)
	if err != nil {
		return err
	}
	defer cleanup()
	defer in.Close()

	cfg := getConfig(c)

	slog.Info("importing samples", "dataset", dataset)
	res, err := data.ImportSamples(cfg.DB, dataset, in)
	if err != nil {
		return fmt.Errorf("failed to import samples: %w", err)
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}

func cmdImportThresholds(c *cli.Context) error {
	in, cleanup, err := openInput(c)
	if err != nil {
		return err
	}
	defer cleanup()
	defer in.Close()

	cfg := getConfig(c)

	slog.Info("importing thresholds")
	res, err := data.ImportThresholds(cfg.DB, in)
	if err != nil {
		return fmt.Errorf("failed to import thresholds: %w", err)
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}

func cmdImportCalibration(c *cli.Context) error {
	in, cleanup, err := openInput(c)
	if err != nil {
		return err
	}
	defer cleanup()
	defer in.Close()

	cfg := getConfig(c)

	slog.Info("importing calibration table")
	res, err := data.ImportCalibration(cfg.DB, in)
	if err != nil {
		return fmt.Errorf("failed to import calibration: %w", err)
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}

func cmdGenerateCalibration(c *cli.Context) error {
	min := c.Float64(gridMinFlag.Name)
	max := c.Float64(gridMaxFlag.Name)
	step := c.Float64(gridStepFlag.Name)

	slog.Info("generating calibration table", "min", min, "max", max, "step", step)
	table, err := scale.BuildTable(min, max, step, false)
	if err != nil {
		return fmt.Errorf("failed to build calibration table: %w", err)
	}

	cfg := getConfig(c)

	if err := data.SaveCalibration(cfg.DB, table.Rows()); err != nil {
		return fmt.Errorf("failed to save calibration table: %w", err)
	}

	res := &data.ImportSummary{
		Kind: data.ImportKindCalibration,
		Rows: table.Len(),
	}

	if err := encode(res); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}

	return nil
}
