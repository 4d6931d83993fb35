// Package config loads virtsql settings from defaults, an optional config
// file, VIRTSQL_ environment variables and command line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vegasq/virtsql/output"
)

// EnvPrefix prefixes the environment variables overriding settings, as in
// VIRTSQL_FORMAT=csv.
const EnvPrefix = "VIRTSQL"

// Config holds the settings of one run.
type Config struct {
	Format        string            `mapstructure:"format"`
	Limit         int               `mapstructure:"limit"`
	LogLevel      string            `mapstructure:"log_level"`
	Collation     string            `mapstructure:"collation"`
	PlanCacheSize int               `mapstructure:"plan_cache_size"`
	Databases     map[string]string `mapstructure:"databases"`
	Directories   map[string]string `mapstructure:"directories"`
	Views         map[string]string `mapstructure:"views"`

	// Flag-only settings.
	Query  string         `mapstructure:"-"`
	Schema string         `mapstructure:"-"`
	Params map[string]any `mapstructure:"-"`
	Files  []string       `mapstructure:"-"`

	// File is the config file read, if any.
	File string `mapstructure:"-"`
}

var defaults = map[string]any{
	"format":          "jsonl",
	"limit":           0,
	"log_level":       "warning",
	"collation":       "binary",
	"plan_cache_size": 128,
}

// Flags declares the command line flags Load reads.
func Flags(fs *pflag.FlagSet) {
	fs.StringP("query", "q", "", `SQL query (e.g., "select * from 'data.parquet' where age > 30")`)
	fs.StringP("format", "f", defaults["format"].(string), "Output format: "+strings.Join(output.Formats, ", "))
	fs.Int("limit", 0, "Limit number of rows (0 = unlimited)")
	fs.String("schema", "", "Print the schema of a parquet file and exit")
	fs.StringArrayP("param", "p", nil, "Query parameter as name=value (repeatable)")
	fs.StringArray("db", nil, "Database to attach as name=url (repeatable)")
	fs.String("config", "", "Config file (default virtsql.yaml in . or $HOME/.virtsql)")
	fs.String("log-level", defaults["log_level"].(string), "Log level: debug, info, warning, error")
	fs.String("collation", defaults["collation"].(string), "ORDER BY string collation: binary, nocase or a language tag")
}

// Load parses args against a flag set prepared by Flags and merges every
// settings source.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	file, _ := fs.GetString("config")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("virtsql")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.virtsql")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for key, flag := range map[string]string{
		"format":    "format",
		"limit":     "limit",
		"log_level": "log-level",
		"collation": "collation",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Query, _ = fs.GetString("query")
	cfg.Schema, _ = fs.GetString("schema")
	cfg.Files = fs.Args()

	dbs, _ := fs.GetStringArray("db")
	if cfg.Databases == nil {
		cfg.Databases = make(map[string]string)
	}
	for _, pair := range dbs {
		name, url, err := splitPair(pair)
		if err != nil {
			return nil, fmt.Errorf("--db: %w", err)
		}
		cfg.Databases[name] = url
	}

	params, _ := fs.GetStringArray("param")
	cfg.Params = make(map[string]any, len(params))
	for _, pair := range params {
		name, value, err := splitPair(pair)
		if err != nil {
			return nil, fmt.Errorf("--param: %w", err)
		}
		cfg.Params[name] = ParseValue(value)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have a fixed set of values.
func (c *Config) Validate() error {
	if !slices.Contains(output.Formats, c.Format) && c.Format != "json" {
		return fmt.Errorf("invalid format %q (want one of %v)", c.Format, output.Formats)
	}
	if c.Limit < 0 {
		return fmt.Errorf("invalid limit %d", c.Limit)
	}
	if c.PlanCacheSize < 0 {
		return fmt.Errorf("invalid plan_cache_size %d", c.PlanCacheSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the logrus level named by LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log_level: %w", err)
	}
	return level, nil
}

// ParseValue converts a parameter given on the command line: integers and
// floats become numbers, true and false become booleans, anything else
// stays a string.
func ParseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	return s
}

func splitPair(pair string) (string, string, error) {
	name, value, ok := strings.Cut(pair, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", pair)
	}
	return name, value, nil
}
