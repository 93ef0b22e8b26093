package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rdfio/fbindex/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration fbindex would run with.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (FBINDEX_*, e.g. FBINDEX_INDEX_BATCH_SIZE)
3. Config file (./fbindex.yaml or --config)
4. Defaults`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(vcfg)
		if err != nil {
			return err
		}
		if cfg.Elasticsearch.Password != "" {
			cfg.Elasticsearch.Password = "********"
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "marshal config")
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
