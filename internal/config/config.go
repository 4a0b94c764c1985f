package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dataset location
	DataFiles []string `mapstructure:"data_files" yaml:"data_files"`
	Source    string   `mapstructure:"source" yaml:"source"`
	Sheet     string   `mapstructure:"sheet" yaml:"sheet,omitempty"`
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter,omitempty"`

	// Form defaults
	DefaultTrait    string `mapstructure:"default_trait" yaml:"default_trait"`
	DefaultAncestry string `mapstructure:"default_ancestry" yaml:"default_ancestry"`
	Direction       string `mapstructure:"direction" yaml:"direction"`

	// Model
	Seed            int64 `mapstructure:"seed" yaml:"seed"`
	Trees           int   `mapstructure:"trees" yaml:"trees"`
	MaxDepth        int   `mapstructure:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int   `mapstructure:"min_samples_split" yaml:"min_samples_split"`
	DatesAsYears    bool  `mapstructure:"dates_as_years" yaml:"dates_as_years"`

	ServerAddr string `mapstructure:"server_addr" yaml:"server_addr"`
	LogFormat  string `mapstructure:"log_format" yaml:"log_format"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"data_files", "source", "sheet", "delimiter",
	"default_trait", "default_ancestry", "direction",
	"seed", "trees", "max_depth", "min_samples_split", "dates_as_years",
	"server_addr", "log_format",
}

// DefaultPath returns ~/.gwastrend/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".gwastrend", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.gwastrend/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory, when present, is applied to the environment first.
func Load(cfgFile string) (*Global, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("GWASTREND")
	v.AutomaticEnv()

	v.SetDefault("data_files", []string{"part1.csv", "part2.csv", "part3.csv", "part4.csv", "part5.csv"})
	v.SetDefault("source", "parts")
	v.SetDefault("sheet", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("default_trait", "Diabetes")
	v.SetDefault("default_ancestry", "African American")
	v.SetDefault("direction", "associations")
	v.SetDefault("seed", 42)
	v.SetDefault("trees", 100)
	v.SetDefault("max_depth", 0)
	v.SetDefault("min_samples_split", 2)
	v.SetDefault("dates_as_years", false)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Set parses val for key and stores it on c.
func (c *Global) Set(key, val string) error {
	switch key {
	case "data_files":
		var files []string
		for _, f := range strings.Split(val, ",") {
			if f = strings.TrimSpace(f); f != "" {
				files = append(files, f)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("invalid data_files: %q (comma-separated paths)", val)
		}
		c.DataFiles = files
	case "source":
		switch strings.ToLower(val) {
		case "parts", "csv", "glob", "xlsx":
			c.Source = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid source: %s (use parts, glob or xlsx)", val)
		}
	case "sheet":
		c.Sheet = val
	case "delimiter":
		c.Delimiter = val
	case "default_trait":
		c.DefaultTrait = val
	case "default_ancestry":
		c.DefaultAncestry = val
	case "direction":
		switch val {
		case "associations", "sample-size":
			c.Direction = val
		default:
			return fmt.Errorf("invalid direction: %s (use associations or sample-size)", val)
		}
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = i
	case "trees", "max_depth", "min_samples_split":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "trees":
			c.Trees = i
		case "max_depth":
			c.MaxDepth = i
		default:
			c.MinSamplesSplit = i
		}
	case "dates_as_years":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for dates_as_years: %w", err)
		}
		c.DatesAsYears = b
	case "server_addr":
		c.ServerAddr = val
	case "log_format":
		switch val {
		case "text", "json":
			c.LogFormat = val
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get returns the display value of key.
func (c *Global) Get(key string) string {
	switch key {
	case "data_files":
		return strings.Join(c.DataFiles, ",")
	case "source":
		return c.Source
	case "sheet":
		return c.Sheet
	case "delimiter":
		return c.Delimiter
	case "default_trait":
		return c.DefaultTrait
	case "default_ancestry":
		return c.DefaultAncestry
	case "direction":
		return c.Direction
	case "seed":
		return strconv.FormatInt(c.Seed, 10)
	case "trees":
		return strconv.Itoa(c.Trees)
	case "max_depth":
		return strconv.Itoa(c.MaxDepth)
	case "min_samples_split":
		return strconv.Itoa(c.MinSamplesSplit)
	case "dates_as_years":
		return strconv.FormatBool(c.DatesAsYears)
	case "server_addr":
		return c.ServerAddr
	case "log_format":
		return c.LogFormat
	}
	return ""
}
