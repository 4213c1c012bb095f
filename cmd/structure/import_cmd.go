package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
)

type importOptions struct {
	datasetID int64
	path      string
	format    string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a manifest into a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			return runImport(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.datasetID, "dataset", 0, "Dataset id (required)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Manifest format: csv or xlsx (default: detected)")
	_ = cmd.MarkFlagRequired("dataset")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.datasetID <= 0 {
			return withCode(exitUsage, fmt.Errorf("invalid --dataset: %d", opts.datasetID))
		}
		return nil
	}
	return cmd
}

func runImport(ctx context.Context, out io.Writer, opts importOptions) error {
	content, err := os.ReadFile(opts.path)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("read %s: %w", opts.path, err))
	}
	return withStore(ctx, func(ctx context.Context, svc *services.StructureService, _ *services.VersionService) error {
		res, err := svc.Import(ctx, services.ImportInput{
			DatasetID: opts.datasetID,
			Filename:  filepath.Base(opts.path),
			Format:    opts.format,
			Content:   content,
		})
		if err != nil {
			return serviceError(err, true)
		}
		return writeJSONLine(out, res)
	})
}
