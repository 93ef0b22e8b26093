package main

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rdfio/fbindex/components"
	"github.com/rdfio/fbindex/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var parseOut string

var parseCmd = &cobra.Command{
	Use:   "parse <dump.gz>",
	Short: "Summarize the entities of a gzipped triple dump",
	Long: `parse reads a gzipped N-Triples style Freebase dump and writes one gzipped
JSON line per entity, holding its titles, aliases and types:

  {"mid":"0abc","title":{"en":"Title"},"aliases":{"en":["Alias"]},"types":["SomeType"]}

Statements about an entity are only merged while the entity stays among the
--capacity most recently seen ones. An entity coming back after that is
written again as a separate record, and reported as a duplicate flush.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "output file (default: <output-dir>/<basename of dump>)")
	parseCmd.Flags().String("output-dir", "", "directory of the output file")
	parseCmd.Flags().Int("capacity", 0, "number of entity records kept in memory")
	parseCmd.Flags().Int("queue-size", 0, "number of evicted records queued for the writer")
	parseCmd.Flags().Bool("track-duplicates", true, "detect entities written more than once")
	parseCmd.Flags().StringSlice("languages", nil, "only keep titles and aliases in these languages")
	parseCmd.Flags().String("statements-out", "", "also write the recognized statements as gzipped N-Triples to this file")

	_ = vcfg.BindPFlag("parse.output_dir", parseCmd.Flags().Lookup("output-dir"))
	_ = vcfg.BindPFlag("parse.capacity", parseCmd.Flags().Lookup("capacity"))
	_ = vcfg.BindPFlag("parse.queue_size", parseCmd.Flags().Lookup("queue-size"))
	_ = vcfg.BindPFlag("parse.track_duplicates", parseCmd.Flags().Lookup("track-duplicates"))
	_ = vcfg.BindPFlag("parse.languages", parseCmd.Flags().Lookup("languages"))
	_ = vcfg.BindPFlag("parse.statements_out", parseCmd.Flags().Lookup("statements-out"))
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(vcfg)
	if err != nil {
		return err
	}
	metrics, writeMetrics, err := newMetrics(cfg)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	outFile := parseOut
	if outFile == "" {
		outFile = filepath.Join(cfg.Parse.OutputDir, filepath.Base(args[0]))
	}
	if err := fs.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return errors.Wrapf(err, "create output directory for %s", outFile)
	}

	_, err = components.ParseDump(fs, args[0], outFile, components.ParseOptions{
		Capacity:                 cfg.Parse.Capacity,
		QueueSize:                cfg.Parse.QueueSize,
		DisableDuplicateTracking: !cfg.Parse.TrackDuplicates,
		Languages:                cfg.Parse.Languages,
		StatementsOut:            cfg.Parse.StatementsOut,
		Metrics:                  metrics,
	})
	if err != nil {
		return err
	}
	return writeMetrics()
}
