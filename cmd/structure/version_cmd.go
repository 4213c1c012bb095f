package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
)

type versionOptions struct {
	datasetID   int64
	name        string
	description string
	list        bool
}

type versionLine struct {
	ID        int64     `json:"id"`
	Dataset   int64     `json:"dataset_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Frozen    int       `json:"frozen,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var opts versionOptions

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Release a version of a dataset structure or list released versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.datasetID, "dataset", 0, "Dataset id (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Version name (required unless --list)")
	cmd.Flags().StringVar(&opts.description, "description", "", "Version description")
	cmd.Flags().BoolVar(&opts.list, "list", false, "List versions instead of creating one")
	_ = cmd.MarkFlagRequired("dataset")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.datasetID <= 0 {
			return withCode(exitUsage, fmt.Errorf("invalid --dataset: %d", opts.datasetID))
		}
		if !opts.list && opts.name == "" {
			return withCode(exitUsage, fmt.Errorf("--name is required"))
		}
		return nil
	}
	return cmd
}

func runVersion(ctx context.Context, out io.Writer, opts versionOptions) error {
	return withStore(ctx, func(ctx context.Context, _ *services.StructureService, versions *services.VersionService) error {
		if opts.list {
			list, err := versions.Versions(ctx, opts.datasetID)
			if err != nil {
				return serviceError(err, false)
			}
			for _, v := range list {
				if err := writeJSONLine(out, versionLine{ID: v.ID, Dataset: v.DatasetID, Name: v.Name, CreatedAt: v.CreatedAt}); err != nil {
					return err
				}
			}
			return nil
		}
		v, frozen, err := versions.Create(ctx, services.CreateVersionInput{
			DatasetID:   opts.datasetID,
			Name:        opts.name,
			Description: opts.description,
		})
		if err != nil {
			return serviceError(err, true)
		}
		return writeJSONLine(out, versionLine{ID: v.ID, Dataset: v.DatasetID, Name: v.Name, CreatedAt: v.CreatedAt, Frozen: frozen})
	})
}
