package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/flowbase/flowbase"
	"github.com/rdfio/fbindex/components"
	"github.com/rdfio/fbindex/config"
	"github.com/rdfio/fbindex/search"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index <records.gz>",
	Short: "Bulk load a parsed record file into Elasticsearch",
	Long: `index sends the records written by parse to Elasticsearch in bulk requests
of --batch-size records. The run stops at the first bulk request with a
rejected record and prints every rejected record of that request.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: bindElasticFlags,
	RunE:    runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().Int("batch-size", 0, "records per bulk request")
	indexCmd.Flags().Bool("reset", false, "drop and recreate the index before loading")
	addElasticFlags(indexCmd)

	_ = vcfg.BindPFlag("index.batch_size", indexCmd.Flags().Lookup("batch-size"))
	_ = vcfg.BindPFlag("index.reset", indexCmd.Flags().Lookup("reset"))
}

func addElasticFlags(cmd *cobra.Command) {
	cmd.Flags().String("index", "", "index name")
	cmd.Flags().StringSlice("es", nil, "Elasticsearch addresses")
}

// bindElasticFlags binds the flags added by addElasticFlags. Several commands
// share them, so binding happens for the command actually run.
func bindElasticFlags(cmd *cobra.Command, args []string) error {
	if err := vcfg.BindPFlag("index.name", cmd.Flags().Lookup("index")); err != nil {
		return err
	}
	return vcfg.BindPFlag("elasticsearch.addresses", cmd.Flags().Lookup("es"))
}

func newSearchClient(cfg config.Config) (*search.Elastic, error) {
	return search.NewElastic(search.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Index:     cfg.Index.Name,
	})
}

func runIndex(cmd *cobra.Command, args []string) (err error) {
	cfg, err := config.Load(vcfg)
	if err != nil {
		return err
	}
	metrics, writeMetrics, err := newMetrics(cfg)
	if err != nil {
		return err
	}

	client, err := newSearchClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx := context.Background()
	if cfg.Index.Reset {
		if err := client.ResetIndex(ctx); err != nil {
			return err
		}
	}

	indexer := components.NewBatchIndexer(client, components.IndexOptions{
		BatchSize: cfg.Index.BatchSize,
		Index:     cfg.Index.Name,
		Metrics:   metrics,
	})
	_, err = components.IndexFile(ctx, afero.NewOsFs(), args[0], indexer)
	var bulkErr *components.BulkError
	if errors.As(err, &bulkErr) {
		for _, f := range bulkErr.Failures {
			flowbase.Error.Printf("Rejected %s (status %d): %s\n", f.Document.MID, f.Status, f.Error)
		}
	}
	if metricsErr := writeMetrics(); metricsErr != nil && err == nil {
		err = metricsErr
	}
	return err
}
