package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/signalnine/trialbook/internal/errdefs"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "trialbook.yaml"

type Config struct {
	Log    Log    `yaml:"log"`
	Store  Store  `yaml:"store"`
	Report Report `yaml:"report"`
	Import Import `yaml:"import"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Store struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type Report struct {
	Format             string    `yaml:"format"`
	KeyComponents      FieldList `yaml:"key_components"`
	RunMetadataFields  FieldList `yaml:"run_metadata_fields"`
	Delimiter          string    `yaml:"delimiter"`
	ShortenMetricNames bool      `yaml:"shorten_metric_names"`
}

type Import struct {
	Parallel int `yaml:"parallel"`
}

// FieldList is a list of column names. It only decodes from a YAML sequence.
type FieldList []string

func (f *FieldList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return errdefs.InvalidArgumentf("line %d: expected a list of field names", node.Line)
	}
	var fields []string
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*f = fields
	return nil
}

var (
	logFormats    = []string{"text", "json"}
	reportFormats = []string{"table", "markdown", "json", "csv"}
	storeBackends = []string{"memory", "sqlite"}
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	_ = validate(cfg)
	return cfg
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

// LoadOrDefault loads path, falling back to Default when path is the
// default location and does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func validate(cfg *Config) error {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if !slices.Contains(logFormats, cfg.Log.Format) {
		return fmt.Errorf("log: unknown format %q", cfg.Log.Format)
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if !slices.Contains(storeBackends, cfg.Store.Backend) {
		return fmt.Errorf("store: unknown backend %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = "trialbook.db"
	}

	r := &cfg.Report
	if r.Format == "" {
		r.Format = "table"
	}
	if !slices.Contains(reportFormats, r.Format) {
		return fmt.Errorf("report: unknown format %q", r.Format)
	}
	if len(r.KeyComponents) == 0 {
		r.KeyComponents = FieldList{"trial_index", "arm_name"}
	}
	if r.Delimiter == "" {
		r.Delimiter = "."
	}

	if cfg.Import.Parallel < 0 {
		return fmt.Errorf("import: parallel must be non-negative")
	}
	if cfg.Import.Parallel == 0 {
		cfg.Import.Parallel = 4
	}
	return nil
}
