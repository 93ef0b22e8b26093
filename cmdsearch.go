package main

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/rdfio/fbindex/components"
	"github.com/rdfio/fbindex/config"
	"github.com/rdfio/fbindex/search"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query the entity index",
}

var searchFulltextCmd = &cobra.Command{
	Use:   "fulltext <query>",
	Short: "Match titles and aliases against a text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSearchClient(func(ctx context.Context, client search.Client, cfg config.Config) error {
			hits, err := client.Search(ctx, strings.Join(args, " "), cfg.Search.Size)
			if err != nil {
				return err
			}
			return renderRecords(hits)
		})
	},
}

var searchTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the most frequent entity types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSearchClient(func(ctx context.Context, client search.Client, cfg config.Config) error {
			buckets, err := client.TypeCounts(ctx, cfg.Search.Buckets)
			if err != nil {
				return err
			}
			data := pterm.TableData{{"Type", "Entities"}}
			for _, b := range buckets {
				data = append(data, []string{b.Key, strconv.FormatInt(b.Count, 10)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		})
	},
}

var searchTypeCmd = &cobra.Command{
	Use:   "type <type>",
	Short: "List entities of a type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSearchClient(func(ctx context.Context, client search.Client, cfg config.Config) error {
			hits, err := client.OfType(ctx, args[0], cfg.Search.Size)
			if err != nil {
				return err
			}
			return renderRecords(hits)
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	for _, cmd := range []*cobra.Command{searchFulltextCmd, searchTypesCmd, searchTypeCmd} {
		searchCmd.AddCommand(cmd)
		addElasticFlags(cmd)
	}
	searchFulltextCmd.Flags().Int("size", 0, "number of results")
	searchTypeCmd.Flags().Int("size", 0, "number of results")
	searchTypesCmd.Flags().Int("buckets", 0, "number of types listed")
	searchFulltextCmd.PreRunE = bindSearchFlags("search.size", "size")
	searchTypeCmd.PreRunE = bindSearchFlags("search.size", "size")
	searchTypesCmd.PreRunE = bindSearchFlags("search.buckets", "buckets")
}

func bindSearchFlags(key, flag string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := bindElasticFlags(cmd, args); err != nil {
			return err
		}
		return vcfg.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}

func withSearchClient(fn func(context.Context, search.Client, config.Config) error) (err error) {
	cfg, err := config.Load(vcfg)
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
	return fn(context.Background(), client, cfg)
}

func renderRecords(hits []json.RawMessage) error {
	data := pterm.TableData{{"mid", "Title", "Aliases", "Types"}}
	for _, hit := range hits {
		var rec components.EntityRecord
		if err := json.Unmarshal(hit, &rec); err != nil {
			return errors.Wrap(err, "decode search hit")
		}
		data = append(data, []string{
			rec.MID,
			strings.Join(perLanguage(rec.Title, func(s string) []string { return []string{s} }), "\n"),
			strings.Join(perLanguage(rec.Aliases, func(s []string) []string { return s }), "\n"),
			strings.Join(rec.Types, "\n"),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// perLanguage flattens a per language map into "lang: value" lines, sorted
// by language.
func perLanguage[V any](m map[string]V, values func(V) []string) []string {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	var out []string
	for _, lang := range langs {
		for _, v := range values(m[lang]) {
			out = append(out, lang+": "+v)
		}
	}
	return out
}
