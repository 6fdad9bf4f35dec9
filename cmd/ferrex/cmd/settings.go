package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cerplabs/ferrex/internal/output"
	"github.com/cerplabs/ferrex/pkg/index"
	"github.com/cerplabs/ferrex/pkg/kvstore"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View or update index settings",
	}

	cmd.AddCommand(newSettingsFilterableFieldsCmd())
	return cmd
}

func newSettingsFilterableFieldsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filterable-fields [field...]",
		Short: "Get or set the fields eligible for facet filtering",
		Long: `With no arguments, prints the currently configured filterable
fields. With one or more field names, replaces the configured set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsFilterableFields(cmd, args)
		},
	}
	return cmd
}

func runSettingsFilterableFields(cmd *cobra.Command, fields []string) error {
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

	if len(fields) == 0 {
		var current []string
		err := idx.Store().View(func(tx *kvstore.Tx) error {
			current = idx.FilterableFields(tx)
			return nil
		})
		if err != nil {
			return err
		}
		if len(current) == 0 {
			out.Status("", "No filterable fields configured")
			return nil
		}
		for _, f := range current {
			out.Status("", f)
		}
		return nil
	}

	err = idx.Store().Update(func(tx *kvstore.Tx) error {
		return idx.SetFilterableFields(tx, fields)
	})
	if err != nil {
		return fmt.Errorf("failed to update filterable fields: %w", err)
	}

	out.Successf("filterable fields set to %v", fields)
	return nil
}
