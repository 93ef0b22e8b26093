// Package config loads the fbindex configuration. Values come, from highest
// to lowest priority, from command line flags, FBINDEX_* environment
// variables, a YAML config file and the defaults below.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Parse         ParseConfig         `mapstructure:"parse" yaml:"parse"`
	Index         IndexConfig         `mapstructure:"index" yaml:"index"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch" yaml:"elasticsearch"`
	Search        SearchConfig        `mapstructure:"search" yaml:"search"`
	Metrics       MetricsConfig       `mapstructure:"metrics" yaml:"metrics"`
}

type ParseConfig struct {
	Capacity        int      `mapstructure:"capacity" yaml:"capacity"`
	QueueSize       int      `mapstructure:"queue_size" yaml:"queue_size"`
	TrackDuplicates bool     `mapstructure:"track_duplicates" yaml:"track_duplicates"`
	Languages       []string `mapstructure:"languages" yaml:"languages"`
	OutputDir       string   `mapstructure:"output_dir" yaml:"output_dir"`
	StatementsOut   string   `mapstructure:"statements_out" yaml:"statements_out"`
}

type IndexConfig struct {
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
	Name      string `mapstructure:"name" yaml:"name"`
	Reset     bool   `mapstructure:"reset" yaml:"reset"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses" yaml:"addresses"`
	Username  string   `mapstructure:"username" yaml:"username"`
	Password  string   `mapstructure:"password" yaml:"password"`
}

type SearchConfig struct {
	Size    int `mapstructure:"size" yaml:"size"`
	Buckets int `mapstructure:"buckets" yaml:"buckets"`
}

type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("parse.capacity", 100)
	v.SetDefault("parse.queue_size", 16)
	v.SetDefault("parse.track_duplicates", true)
	v.SetDefault("parse.languages", []string{})
	v.SetDefault("parse.output_dir", "resources/output")
	v.SetDefault("parse.statements_out", "")
	v.SetDefault("index.batch_size", 300)
	v.SetDefault("index.name", "freebase")
	v.SetDefault("index.reset", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("search.size", 10)
	v.SetDefault("search.buckets", 10)
	v.SetDefault("metrics.file", "")
}

// New returns a viper instance with defaults and FBINDEX_* environment
// variables wired in.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("FBINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration made of defaults only.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := Load(v)
	return cfg
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Parse.Capacity < 1:
		return errors.Newf("parse.capacity must be at least 1, got %d", c.Parse.Capacity)
	case c.Parse.QueueSize < 1:
		return errors.Newf("parse.queue_size must be at least 1, got %d", c.Parse.QueueSize)
	case c.Index.BatchSize < 1:
		return errors.Newf("index.batch_size must be at least 1, got %d", c.Index.BatchSize)
	case c.Index.Name == "":
		return errors.New("index.name must not be empty")
	case len(c.Elasticsearch.Addresses) == 0:
		return errors.New("elasticsearch.addresses must not be empty")
	}
	return nil
}
