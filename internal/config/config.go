package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBatchSize    = 128
	DefaultEpochs       = 1000
	DefaultLearningRate = 1e-3
	DefaultTrajectories = 1000
	DefaultObserveSteps = 100
	DefaultPatience     = 100
	DefaultHiddenUnits  = 42
	DefaultNODEHidden   = 128
	DefaultLatentDim    = 2
	DefaultRunTimes     = 5
	DefaultTol          = 1e-6
)

type Config struct {
	Dataset string `yaml:"dataset"`
	Solver  string `yaml:"solver"`
	Models  string `yaml:"models"`

	BatchSize    int     `yaml:"batch_size"`
	Epochs       int     `yaml:"epochs"`
	Seed         int64   `yaml:"seed"`
	RunTimes     int     `yaml:"run_times"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Patience     int     `yaml:"patience"`
	ClipNorm     float64 `yaml:"clip_norm"`

	Trajectories int     `yaml:"trajectories"`
	ObserveSteps int     `yaml:"observe_steps"`
	Extrapolate  bool    `yaml:"extrapolate"`
	Normalize    bool    `yaml:"normalize"`
	NoiseStd     float64 `yaml:"noise_std"`
	Missing      float64 `yaml:"percent_missing"`
	AvgTerms     int     `yaml:"avg_terms"`
	WindowWidth  int     `yaml:"window_width"`
	OutOfDist    bool    `yaml:"out_of_distribution"`
	External     bool    `yaml:"external_feature"`

	HiddenUnits int     `yaml:"hidden_units"`
	LatentDim   int     `yaml:"latent_dim"`
	AugmentDim  int     `yaml:"augment_dim"`
	Tol         float64 `yaml:"tol"`

	DataDir    string `yaml:"data_dir"`
	ResultsDir string `yaml:"results_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Dataset:      "sine",
		Solver:       "euler",
		Models:       "node,persistence",
		BatchSize:    DefaultBatchSize,
		Epochs:       DefaultEpochs,
		RunTimes:     DefaultRunTimes,
		LearningRate: DefaultLearningRate,
		Patience:     DefaultPatience,
		Trajectories: DefaultTrajectories,
		ObserveSteps: DefaultObserveSteps,
		Extrapolate:  true,
		Normalize:    true,
		OutOfDist:    true,
		HiddenUnits:  DefaultHiddenUnits,
		LatentDim:    DefaultLatentDim,
		Tol:          DefaultTol,
		DataDir:      "datasets",
		ResultsDir:   "results",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
