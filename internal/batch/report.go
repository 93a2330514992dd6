package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig is the configuration section of a saved run report.
type RunConfig struct {
	Root        string  `yaml:"root"`
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Prompt      string  `yaml:"prompt"`
	Temperature float64 `yaml:"temperature"`
	Concurrency int     `yaml:"concurrency"`
	TriggerWord string  `yaml:"triggerword,omitempty"`
	Timestamp   string  `yaml:"timestamp"`
}

// RunReport pairs a run's configuration with its per-item outcomes.
type RunReport struct {
	Config  RunConfig `yaml:"config"`
	Summary Summary   `yaml:"summary"`
}

// SaveReport writes a YAML run report into dir, named by timestamp.
// Returns the path of the written file.
func SaveReport(dir, root string, opts Options, summary Summary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	report := RunReport{
		Config: RunConfig{
			Root:        root,
			Provider:    opts.ProviderName,
			Model:       opts.Model,
			Prompt:      opts.Prompt,
			Temperature: opts.Temperature,
			Concurrency: opts.Concurrency,
			TriggerWord: opts.TriggerWord,
			Timestamp:   timestamp,
		},
		Summary: summary,
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("captions_%s.yaml", timestamp))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
