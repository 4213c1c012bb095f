package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/infrastructure/memory"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
)

type checkOptions struct {
	path    string
	tree    bool
	apiHost string
	strict  bool
}

type checkReport struct {
	File   string                 `json:"file"`
	Format manifest.Format        `json:"format"`
	OK     bool                   `json:"ok"`
	Result *services.ImportResult `json:"result"`
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Read a manifest and dry-run its import into an empty in-memory dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.tree, "tree", false, "Print the parsed manifest tree as YAML instead of the import report")
	cmd.Flags().StringVar(&opts.apiHost, "api-host", "get.data.gov.lt", "Data API host used for models without a resource")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when the manifest has errors that belong to no node")
	return cmd
}

func runCheck(ctx context.Context, out io.Writer, opts checkOptions) error {
	content, err := os.ReadFile(opts.path)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("%s", strings.Join(manifest.DetectFileErrors(opts.path), " ")))
	}

	svc := services.NewStructureService(memory.NewStore(), nil, services.Options{APIHost: opts.apiHost, Strict: opts.strict})
	if opts.tree {
		state := svc.Check(content, opts.path)
		if err := writeYAML(out, state); err != nil {
			return err
		}
		if !state.OK() {
			return withCode(exitValidation, fmt.Errorf("%s: manifest cannot be read", opts.path))
		}
		return nil
	}

	ds, err := svc.CreateDataset(ctx, "check")
	if err != nil {
		return err
	}
	res, err := svc.Import(ctx, services.ImportInput{
		DatasetID: ds.ID,
		Filename:  filepath.Base(opts.path),
		Content:   content,
	})
	if err != nil {
		return serviceError(err, false)
	}

	report := checkReport{
		File:   opts.path,
		Format: manifest.DetectFormat(content, opts.path),
		OK:     len(res.FileErrors) == 0 && len(res.Errors) == 0,
		Result: res,
	}
	if err := writeJSONLine(out, report); err != nil {
		return err
	}
	if !report.OK {
		n := len(res.Errors)
		if n == 0 {
			n = len(res.FileErrors)
		}
		return withCode(exitValidation, fmt.Errorf("%s: %d errors found", opts.path, n))
	}
	return nil
}
