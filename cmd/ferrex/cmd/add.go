package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cerplabs/ferrex/internal/output"
	"github.com/cerplabs/ferrex/pkg/docvalue"
	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
	"github.com/cerplabs/ferrex/pkg/tokenize"
)

type addOptions struct {
	file            string
	primaryKeyField string
	autogenIDs      bool
}

func newAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add documents to the index",
		Long: `Add reads a JSON document (a mapping) or a JSON array of
documents from --file (default stdin) and adds them to the index,
tokenizing every string field for full-text search.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "-", "Path to a JSON document file, or - for stdin")
	cmd.Flags().StringVar(&opts.primaryKeyField, "primary-key", "id", "Name of the primary-key field")
	cmd.Flags().BoolVar(&opts.autogenIDs, "autogen-ids", false, "Generate a UUID primary key for documents missing one")

	return cmd
}

func runAdd(cmd *cobra.Command, opts addOptions) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, err := readInput(opts.file)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var doc docvalue.Value
	if err := doc.UnmarshalJSON(raw); err != nil {
		return fmt.Errorf("failed to parse document JSON: %w", err)
	}

	if opts.autogenIDs {
		doc = autogenPrimaryKeys(doc, opts.primaryKeyField)
	}

	idx, err := index.OpenWithSize(cfg.Index.Path, cfg.Index.SizeMB)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer func() { _ = idx.Close() }()

	tok := tokenize.NewCode()
	var docIDs []uint32
	err = idx.Store().Update(func(tx *kvstore.Tx) error {
		var err error
		docIDs, err = idx.AddDocuments(tx, doc, index.AddOptions{
			PrimaryKeyField: opts.primaryKeyField,
			Tokenizer:       tok,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	out.Successf("added %d document(s)", len(docIDs))
	return nil
}

// autogenPrimaryKeys fills in a UUID under field for every object in doc
// (a single mapping or a sequence of mappings) that doesn't already have
// one, backing --autogen-ids.
func autogenPrimaryKeys(doc docvalue.Value, field string) docvalue.Value {
	switch doc.Kind() {
	case docvalue.KindObject:
		return autogenOnePrimaryKey(doc, field)
	case docvalue.KindArray:
		items := doc.AsArray()
		out := make([]docvalue.Value, len(items))
		for i, item := range items {
			if item.Kind() == docvalue.KindObject {
				out[i] = autogenOnePrimaryKey(item, field)
			} else {
				out[i] = item
			}
		}
		return docvalue.Array(out)
	default:
		return doc
	}
}

func autogenOnePrimaryKey(obj docvalue.Value, field string) docvalue.Value {
	if _, ok := obj.AsObject()[field]; ok {
		return obj
	}
	fields := make(map[string]docvalue.Value, len(obj.ObjectKeys())+1)
	for k, v := range obj.AsObject() {
		fields[k] = v
	}
	fields[field] = docvalue.String(uuid.NewString())
	return docvalue.Object(fields)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
