package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cerplabs/ferrex/internal/output"
	"github.com/cerplabs/ferrex/pkg/geo"
	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/query"
)

type searchOptions struct {
	limit       int
	prefix      string
	format      string // "text", "json"
	nearLon     float64
	nearLat     float64
	nearRadiusM float64
	useNear     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Long: `Search runs a query as an intersection of criteria: every word of
<query> becomes a term criterion, --prefix adds a prefix criterion, and
--near adds a geo-proximity criterion. Hits are ranked by summed
criterion score and printed most-relevant first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			return runSearch(cmd, q, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Additional prefix criterion")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().Float64Var(&opts.nearLon, "near-lon", 0, "Longitude for a geo-proximity criterion")
	cmd.Flags().Float64Var(&opts.nearLat, "near-lat", 0, "Latitude for a geo-proximity criterion")
	cmd.Flags().Float64Var(&opts.nearRadiusM, "near-radius-m", 0, "Radius in meters for a geo-proximity criterion")
	cmd.Flags().BoolVar(&opts.useNear, "near", false, "Enable the --near-lon/--near-lat/--near-radius-m criterion")

	return cmd
}

func runSearch(cmd *cobra.Command, q string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	idx, err := index.OpenWithSize(cfg.Index.Path, cfg.Index.SizeMB)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer func() { _ = idx.Close() }()

	var hits []query.Hit
	var docs []docSummary

	err = idx.Store().View(func(tx *kvstore.Tx) error {
		criteria, err := buildCriteria(idx, tx, q, opts)
		if err != nil {
			return err
		}

		engine := query.NewEngine(idx)
		hits, err = engine.Search(cmd.Context(), tx, criteria, opts.limit)
		if err != nil {
			return err
		}

		for _, h := range hits {
			doc, ok, err := idx.GetDocument(tx, h.DocID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			docs = append(docs, docSummary{DocID: h.DocID, Score: h.Score, Doc: doc})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		return formatSearchJSON(cmd, docs)
	}
	return formatSearchText(out, q, docs)
}

// buildCriteria assembles the criterion tree: one term criterion per query
// word, an optional prefix criterion, and an optional geo criterion.
func buildCriteria(idx *index.Index, tx *kvstore.Tx, q string, opts searchOptions) ([]query.Criterion, error) {
	var criteria []query.Criterion

	for _, word := range strings.Fields(q) {
		c, err := query.NewTermCriterion(idx, tx, strings.ToLower(word))
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}

	if opts.prefix != "" {
		c, err := query.NewPrefixCriterion(idx, tx, strings.ToLower(opts.prefix))
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}

	if opts.useNear {
		center := geo.Point{Lon: opts.nearLon, Lat: opts.nearLat}
		c, err := query.NewGeoCriterion(idx, tx, center, opts.nearRadiusM)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}

	return criteria, nil
}

type docSummary struct {
	DocID uint32
	Score float64
	Doc   any
}

func formatSearchText(out *output.Writer, q string, docs []docSummary) error {
	if len(docs) == 0 {
		out.Status("", fmt.Sprintf("No results found for %q", q))
		return nil
	}

	out.Statusf("", "Found %d result(s) for %q:", len(docs), q)
	out.Newline()
	for i, d := range docs {
		raw, err := json.Marshal(d.Doc)
		if err != nil {
			return err
		}
		out.Statusf("", "%d. doc #%d (score: %.3f)", i+1, d.DocID, d.Score)
		out.Status("", "   "+string(raw))
	}
	return nil
}

func formatSearchJSON(cmd *cobra.Command, docs []docSummary) error {
	type jsonHit struct {
		DocID uint32  `json:"doc_id"`
		Score float64 `json:"score"`
		Doc   any     `json:"document"`
	}

	hits := make([]jsonHit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, jsonHit{DocID: d.DocID, Score: d.Score, Doc: d.Doc})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}
