// Command fbindex turns a Freebase triple dump into one summary record per
// entity and loads those records into Elasticsearch.
//
//	fbindex parse freebase-rdf-latest.gz     # dump -> resources/output/freebase-rdf-latest.gz
//	fbindex index resources/output/freebase-rdf-latest.gz
//	fbindex search fulltext "claudia"
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/flowbase/flowbase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rdfio/fbindex/components"
	"github.com/rdfio/fbindex/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	vcfg    = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "fbindex",
	Short: "Summarize Freebase entities and index them in Elasticsearch",
	Long: `fbindex works in two phases.

parse reads a gzipped Freebase triple dump and writes one JSON record per
entity (id, titles, aliases and types) to a gzipped intermediate file.

index bulk loads such a file into an Elasticsearch index.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			flowbase.InitLogDebug()
		} else {
			flowbase.InitLogInfo()
		}
		return readConfigFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fbindex.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics in text format to this file at the end of the run")
	_ = vcfg.BindPFlag("metrics.file", rootCmd.PersistentFlags().Lookup("metrics-file"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func readConfigFile() error {
	if cfgFile != "" {
		vcfg.SetConfigFile(cfgFile)
	} else {
		vcfg.AddConfigPath(".")
		vcfg.SetConfigType("yaml")
		vcfg.SetConfigName("fbindex")
	}
	if err := vcfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
		return nil
	}
	flowbase.Debug.Printf("Using config file %s\n", vcfg.ConfigFileUsed())
	return nil
}

// newMetrics creates the metrics of one run, and a function writing them out
// to the configured metrics file.
func newMetrics(cfg config.Config) (*components.Metrics, func() error, error) {
	registry := prometheus.NewRegistry()
	metrics, err := components.NewMetrics(registry)
	if err != nil {
		return nil, nil, err
	}
	write := func() error {
		if cfg.Metrics.File == "" {
			return nil
		}
		if err := prometheus.WriteToTextfile(cfg.Metrics.File, registry); err != nil {
			return errors.Wrapf(err, "write metrics to %s", cfg.Metrics.File)
		}
		return nil
	}
	return metrics, write, nil
}
