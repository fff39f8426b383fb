package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/generator"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const FileName = "flashseed.config"

type Config struct {
	Version     string                 `json:"version" mapstructure:"version"`
	ExportPath  string                 `json:"export_path" mapstructure:"export_path"`
	ColumnSpecs string                 `json:"column_specs" mapstructure:"column_specs"`
	Database    Database               `json:"database" mapstructure:"database"`
	Defaults    Defaults               `json:"defaults" mapstructure:"defaults"`
	Tables      map[string]TableConfig `json:"tables" mapstructure:"tables"`
	Connections map[string]string      `json:"connections" mapstructure:"connections"`
}

type Database struct {
	Provider string `json:"provider" mapstructure:"provider"`
	URLEnv   string `json:"url_env" mapstructure:"url_env"`
	URL      string `json:"url,omitempty" mapstructure:"url"`
}

type Defaults struct {
	RecordCount       int     `json:"record_count" mapstructure:"record_count"`
	BatchSize         int     `json:"batch_size" mapstructure:"batch_size"`
	MaxUniqueAttempts int     `json:"max_unique_attempts" mapstructure:"max_unique_attempts"`
	SampleLimit       int     `json:"sample_limit" mapstructure:"sample_limit"`
	NullProbability   float64 `json:"null_probability" mapstructure:"null_probability"`
	Seed              int64   `json:"seed" mapstructure:"seed"`
	StrictCycles      bool    `json:"strict_cycles" mapstructure:"strict_cycles"`
}

type TableConfig struct {
	RecordCount int                     `json:"record_count,omitempty" mapstructure:"record_count" yaml:"record_count,omitempty"`
	BatchSize   int                     `json:"batch_size,omitempty" mapstructure:"batch_size" yaml:"batch_size,omitempty"`
	Columns     map[string]ColumnConfig `json:"columns,omitempty" mapstructure:"columns" yaml:"columns,omitempty"`
}

type ColumnConfig struct {
	GenerationType string      `json:"generation_type" mapstructure:"generation_type" yaml:"generation_type"`
	FixedValue     interface{} `json:"fixed_value,omitempty" mapstructure:"fixed_value" yaml:"fixed_value,omitempty"`
	StartValue     int64       `json:"start_value,omitempty" mapstructure:"start_value" yaml:"start_value,omitempty"`
	Unique         bool        `json:"unique,omitempty" mapstructure:"unique" yaml:"unique,omitempty"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if cfg.ColumnSpecs != "" {
		if err := cfg.MergeColumnSpecs(cfg.ColumnSpecs); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.ExportPath == "" {
		c.ExportPath = "db/export"
	}
	if c.Database.Provider == "" {
		c.Database.Provider = "postgresql"
	}
	if c.Database.URLEnv == "" {
		c.Database.URLEnv = "DATABASE_URL"
	}
	if c.Defaults.RecordCount == 0 {
		c.Defaults.RecordCount = 100
	}
	if c.Defaults.BatchSize == 0 {
		c.Defaults.BatchSize = 1000
	}
	if c.Defaults.MaxUniqueAttempts == 0 {
		c.Defaults.MaxUniqueAttempts = generator.DefaultMaxUniqueAttempts
	}
	if c.Defaults.SampleLimit == 0 {
		c.Defaults.SampleLimit = 1000
	}
	if c.Tables == nil {
		c.Tables = make(map[string]TableConfig)
	}
	if c.Connections == nil {
		c.Connections = make(map[string]string)
	}
}

// GetDatabaseURL resolves the URL to connect to: a saved connection when one
// is named, then database.url, then the url_env environment variable.
func (c *Config) GetDatabaseURL(connection string) (string, error) {
	if connection != "" {
		url, ok := c.Connections[strings.ToLower(connection)]
		if !ok {
			return "", fmt.Errorf("no saved connection named %q", connection)
		}
		return url, nil
	}
	if c.Database.URL != "" {
		return c.Database.URL, nil
	}
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

func (c *Config) Validate() error {
	supportedProviders := []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3"}
	supported := false
	for _, provider := range supportedProviders {
		if c.Database.Provider == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Database.Provider, supportedProviders)
	}

	if c.Defaults.RecordCount < 0 {
		return fmt.Errorf("defaults.record_count cannot be negative")
	}
	if c.Defaults.BatchSize <= 0 {
		return fmt.Errorf("defaults.batch_size must be positive")
	}
	if c.Defaults.NullProbability < 0 || c.Defaults.NullProbability > 1 {
		return fmt.Errorf("defaults.null_probability must be between 0 and 1, got %v", c.Defaults.NullProbability)
	}
	if c.ExportPath == "" {
		return fmt.Errorf("export_path cannot be empty")
	}

	for _, table := range c.tableNames() {
		for column, col := range c.Tables[table].Columns {
			if _, err := col.toGenerator(); err != nil {
				return fmt.Errorf("tables.%s.columns.%s: %w", table, column, err)
			}
		}
	}
	return nil
}

func (c *Config) tableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecordCount is the number of rows to generate for table.
func (c *Config) RecordCount(table string) int {
	if t, ok := c.Tables[strings.ToLower(table)]; ok && t.RecordCount > 0 {
		return t.RecordCount
	}
	return c.Defaults.RecordCount
}

func (c *Config) BatchSize(table string) int {
	if t, ok := c.Tables[strings.ToLower(table)]; ok && t.BatchSize > 0 {
		return t.BatchSize
	}
	return c.Defaults.BatchSize
}

// ColumnConfigs converts the configured columns of table for the generator.
func (c *Config) ColumnConfigs(table string) (map[string]generator.ColumnConfig, error) {
	t, ok := c.Tables[strings.ToLower(table)]
	if !ok || len(t.Columns) == 0 {
		return nil, nil
	}
	out := make(map[string]generator.ColumnConfig, len(t.Columns))
	for name, col := range t.Columns {
		gen, err := col.toGenerator()
		if err != nil {
			return nil, fmt.Errorf("tables.%s.columns.%s: %w", table, name, err)
		}
		out[name] = gen
	}
	return out, nil
}

func (cc ColumnConfig) toGenerator() (generator.ColumnConfig, error) {
	mode, err := generator.ParseMode(cc.GenerationType)
	if err != nil {
		return generator.ColumnConfig{}, err
	}
	return generator.ColumnConfig{
		Mode:       mode,
		FixedValue: cc.FixedValue,
		StartValue: cc.StartValue,
		Unique:     cc.Unique,
	}, nil
}

// FromGenerator is the inverse of ColumnConfigs, used when a run is saved.
func FromGenerator(configs map[string]generator.ColumnConfig) map[string]ColumnConfig {
	if len(configs) == 0 {
		return nil
	}
	out := make(map[string]ColumnConfig, len(configs))
	for name, gc := range configs {
		out[name] = ColumnConfig{
			GenerationType: string(gc.Mode),
			FixedValue:     gc.FixedValue,
			StartValue:     gc.StartValue,
			Unique:         gc.Unique,
		}
	}
	return out
}

type columnSpecFile struct {
	Tables map[string]TableConfig `yaml:"tables"`
}

// LoadColumnSpecs reads a YAML file of per-table settings.
func LoadColumnSpecs(path string) (map[string]TableConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read column specs %s: %w", path, err)
	}
	var file columnSpecFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse column specs %s: %w", path, err)
	}
	return file.Tables, nil
}

// MergeColumnSpecs loads path and lets its entries override the config's
// tables section column by column.
func (c *Config) MergeColumnSpecs(path string) error {
	tables, err := LoadColumnSpecs(path)
	if err != nil {
		return err
	}
	if c.Tables == nil {
		c.Tables = make(map[string]TableConfig)
	}
	for name, spec := range tables {
		key := strings.ToLower(name)
		current := c.Tables[key]
		if spec.RecordCount > 0 {
			current.RecordCount = spec.RecordCount
		}
		if spec.BatchSize > 0 {
			current.BatchSize = spec.BatchSize
		}
		if len(spec.Columns) > 0 && current.Columns == nil {
			current.Columns = make(map[string]ColumnConfig, len(spec.Columns))
		}
		for col, cc := range spec.Columns {
			current.Columns[col] = cc
		}
		c.Tables[key] = current
	}
	return nil
}

// SaveConnection stores a named URL in the config file in use, creating
// ./flashseed.config.json when there is none.
func SaveConnection(name, url string) error {
	if name == "" || url == "" {
		return fmt.Errorf("connection name and url are required")
	}
	viper.Set("connections."+strings.ToLower(name), url)

	if viper.ConfigFileUsed() != "" {
		if err := viper.WriteConfig(); err != nil {
			return fmt.Errorf("failed to save connection: %w", err)
		}
		return nil
	}
	if err := viper.WriteConfigAs(FileName + ".json"); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

// RunConfig is a saved population run that can be replayed.
type RunConfig struct {
	Table       string                  `json:"table" mapstructure:"table"`
	RecordCount int                     `json:"record_count" mapstructure:"record_count"`
	BatchSize   int                     `json:"batch_size" mapstructure:"batch_size"`
	Columns     []string                `json:"columns" mapstructure:"columns"`
	ColumnSpecs map[string]ColumnConfig `json:"column_configs,omitempty" mapstructure:"column_configs"`
	Seed        int64                   `json:"seed,omitempty" mapstructure:"seed"`
	CreatedAt   string                  `json:"created_at" mapstructure:"created_at"`
}

// LoadRunConfig reads a run saved by the export package.
func LoadRunConfig(path string) (*RunConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read run config %s: %w", path, err)
	}

	var rc RunConfig
	if err := v.Unmarshal(&rc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run config: %w", err)
	}
	if rc.Table == "" {
		return nil, fmt.Errorf("run config %s has no table", path)
	}
	return &rc, nil
}

// GeneratorConfigs converts the saved column settings.
func (rc *RunConfig) GeneratorConfigs() (map[string]generator.ColumnConfig, error) {
	if len(rc.ColumnSpecs) == 0 {
		return nil, nil
	}
	out := make(map[string]generator.ColumnConfig, len(rc.ColumnSpecs))
	for name, cc := range rc.ColumnSpecs {
		gen, err := cc.toGenerator()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		out[name] = gen
	}
	return out, nil
}
