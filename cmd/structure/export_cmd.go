package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
)

type exportOptions struct {
	datasetID int64
	format    manifest.Format
	output    string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored structure of a dataset as a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.datasetID, "dataset", 0, "Dataset id (required)")
	cmd.Flags().StringVar(&format, "format", "csv", "Manifest format: csv or xlsx")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("dataset")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		f, ok := manifest.ParseFormat(format)
		if !ok {
			return withCode(exitUsage, fmt.Errorf("invalid --format: %q", format))
		}
		opts.format = f
		if opts.datasetID <= 0 {
			return withCode(exitUsage, fmt.Errorf("invalid --dataset: %d", opts.datasetID))
		}
		if opts.output == "" && f == manifest.FormatXLSX {
			return withCode(exitUsage, fmt.Errorf("--output is required for xlsx"))
		}
		return nil
	}
	return cmd
}

func runExport(ctx context.Context, out io.Writer, opts exportOptions) error {
	return withStore(ctx, func(ctx context.Context, svc *services.StructureService, _ *services.VersionService) error {
		data, err := svc.Export(ctx, opts.datasetID, opts.format)
		if err != nil {
			return serviceError(err, false)
		}
		if opts.output == "" {
			_, err = out.Write(data)
			return err
		}
		if err := os.WriteFile(opts.output, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.output, err)
		}
		return nil
	})
}
