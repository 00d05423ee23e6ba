// Package config holds the yaml run-spec that drives multi-dataset
// pipeline runs, replacing the per-dataset copy-paste the analysis
// notebooks grew.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ieco-lab/scarifSDM/pkg/pipeline"
)

const fileMode = 0600

// RunSpec describes a set of pipeline runs sharing one out-of-range
// policy for the calibration table.
type RunSpec struct {
	Clamp bool               `yaml:"clamp,omitempty"`
	Runs  []*pipeline.Params `yaml:"runs"`
}

// Validate checks every run entry.
func (s *RunSpec) Validate() error {
	if len(s.Runs) == 0 {
		return errors.New("run spec requires at least one run")
	}
	seen := make(map[string]bool, len(s.Runs))
	for i, r := range s.Runs {
		if err := r.Validate(); err != nil {
			return errors.Wrapf(err, "run %d", i)
		}
		if seen[r.Dataset] {
			return errors.Errorf("run %d: duplicate dataset: %s", i, r.Dataset)
		}
		seen[r.Dataset] = true
	}
	return nil
}

// Read loads and validates a run spec from a yaml file.
func Read(path string) (*RunSpec, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	var s RunSpec
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}

	return &s, nil
}

// Save writes a run spec to a yaml file.
func Save(path string, s *RunSpec) error {
	if path == "" {
		return errors.New("config path required")
	}
	if s == nil {
		return errors.New("config required")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	b, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", path)
	}

	return nil
}

// Example returns a starter run spec for the common global-vs-regional
// comparison.
func Example() *RunSpec {
	return &RunSpec{
		Runs: []*pipeline.Params{
			{
				Dataset:         "us-populations",
				CoarseModel:     "global",
				CoarseThreshold: "mtss",
				FineModel:       "regional",
				FineThreshold:   "mtss",
				Snapshots:       []string{"1981-2010", "2041-2070"},
			},
		},
	}
}
