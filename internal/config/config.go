package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Provider     Provider     `yaml:"provider"`
	Models       Models       `yaml:"models"`
	Temperatures Temperatures `yaml:"temperatures"`
	Optimization Optimization `yaml:"optimization"`
	Validation   Validation   `yaml:"validation"`
	Paths        Paths        `yaml:"paths"`
}

type Provider struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	EnvFile   string `yaml:"env_file"`
}

type Models struct {
	// Fast runs per-case evaluation; Smart drives repair and compression.
	Fast  string `yaml:"fast"`
	Smart string `yaml:"smart"`
}

type Temperatures struct {
	Evaluation float32 `yaml:"evaluation"`
	Repair     float32 `yaml:"repair"`
	Compress   float32 `yaml:"compress"`
}

type Optimization struct {
	TrainRatio       float64 `yaml:"train_ratio"`
	Seed             int64   `yaml:"seed"`
	Alpha            float64 `yaml:"alpha"`
	Beta             float64 `yaml:"beta"`
	RepairBudget     int     `yaml:"repair_budget"`
	Patience         int     `yaml:"patience"`
	MinImprovement   float64 `yaml:"min_improvement"`
	HoldoutThreshold float64 `yaml:"holdout_threshold"`
	Parallel         int     `yaml:"parallel"`
	RequestTimeoutS  int     `yaml:"request_timeout_s"`
	MaxAttempts      int     `yaml:"max_attempts"`
}

type Validation struct {
	// UnorderedPaths lists field paths whose list values compare as sets.
	UnorderedPaths []string `yaml:"unordered_paths"`
}

type Paths struct {
	Assessment   string `yaml:"assessment"`
	Prompt       string `yaml:"prompt"`
	OutputDir    string `yaml:"output_dir"`
	RepairMeta   string `yaml:"repair_meta"`
	CompressMeta string `yaml:"compress_meta"`
	HistoryDB    string `yaml:"history_db"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Provider.APIKeyEnv == "" {
		cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Models.Fast == "" {
		cfg.Models.Fast = "gpt-4o-mini"
	}
	if cfg.Models.Smart == "" {
		cfg.Models.Smart = "gpt-4o"
	}
	for name, temp := range map[string]float32{
		"temperatures.evaluation": cfg.Temperatures.Evaluation,
		"temperatures.repair":     cfg.Temperatures.Repair,
		"temperatures.compress":   cfg.Temperatures.Compress,
	} {
		if temp < 0 || temp > 1 {
			return fmt.Errorf("%s must be between 0.0 and 1.0, got %v", name, temp)
		}
	}

	o := &cfg.Optimization
	if o.TrainRatio == 0 {
		o.TrainRatio = 0.8
	}
	if o.TrainRatio <= 0 || o.TrainRatio >= 1 {
		return fmt.Errorf("optimization.train_ratio must be in (0, 1), got %v", o.TrainRatio)
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	if o.Alpha < 0 || o.Beta < 0 {
		return fmt.Errorf("optimization weights must be non-negative (alpha=%v, beta=%v)", o.Alpha, o.Beta)
	}
	if o.Alpha == 0 {
		o.Alpha = 100.0
	}
	if o.Beta == 0 {
		o.Beta = 0.01
	}
	if o.RepairBudget < 1 {
		o.RepairBudget = 6
	}
	if o.Patience < 1 {
		o.Patience = 3
	}
	if o.MinImprovement == 0 {
		o.MinImprovement = 0.1
	}
	if o.HoldoutThreshold == 0 {
		o.HoldoutThreshold = 1.0
	}
	if o.HoldoutThreshold < 0 || o.HoldoutThreshold > 1 {
		return fmt.Errorf("optimization.holdout_threshold must be in [0, 1], got %v", o.HoldoutThreshold)
	}
	if o.Parallel < 1 {
		o.Parallel = 5
	}
	if o.RequestTimeoutS < 1 {
		o.RequestTimeoutS = 60
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}

	if cfg.Paths.Assessment == "" {
		return fmt.Errorf("paths.assessment is required")
	}
	if cfg.Paths.Prompt == "" {
		return fmt.Errorf("paths.prompt is required")
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = "optimized"
	}
	if cfg.Paths.HistoryDB == "" {
		cfg.Paths.HistoryDB = "optimized/history.db"
	}
	return nil
}

// APIKey loads the provider env file (if any) and resolves the API key.
func (c *Config) APIKey() (string, error) {
	if c.Provider.EnvFile != "" {
		if err := godotenv.Load(c.Provider.EnvFile); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("loading env file %s: %w", c.Provider.EnvFile, err)
		}
	}
	key := os.Getenv(c.Provider.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s not set", c.Provider.APIKeyEnv)
	}
	return key, nil
}
