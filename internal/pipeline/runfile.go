// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/reviewer-match/pkg/types"
)

// RunFile is the on-disk record of one matching run: the query, the
// configuration that produced the output, and result statistics. It lets
// a researcher audit which policy and pool produced a given ranking
// without re-running the pipeline.
type RunFile struct {
	Query     types.Query             `yaml:"query"`
	Policy    types.AggregationPolicy `yaml:"policy"`
	Authors   int                     `yaml:"authors"`
	Output    string                  `yaml:"output"`
	Elapsed   string                  `yaml:"elapsed"`
	Timestamp time.Time               `yaml:"timestamp"`
}

// WriteRunFile saves a run record to path.
func WriteRunFile(path string, s Summary) error {
	rf := RunFile{
		Query:     s.Query,
		Policy:    s.Policy,
		Authors:   s.Authors,
		Output:    s.OutputPath,
		Elapsed:   s.Elapsed.Round(time.Millisecond).String(),
		Timestamp: time.Now(),
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling run file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRunFile loads a previously saved run record.
func ReadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run file %s: %w", path, err)
	}
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing run file %s: %w", path, err)
	}
	return &rf, nil
}
