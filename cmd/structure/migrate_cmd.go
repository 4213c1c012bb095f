package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/application"
	"github.com/atviriduomenys/katalogas-sub000/pkg/configuration"
)

type migrationLine struct {
	Version int64  `json:"version"`
	Path    string `json:"path"`
	State   string `json:"state"`
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or list the structure schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), action)
		},
	}
}

func runMigrate(ctx context.Context, out io.Writer, action string) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	conf := configuration.Use()
	app := application.New(&application.ApplicationOptions{Pool: pool, Logger: conf.Logger()})
	if err := application.LoadModules(app, structure.NewModule(conf.Structure)); err != nil {
		return err
	}
	migrations := app.Migrations()

	switch action {
	case "up":
		if err := migrations.Run(ctx); err != nil {
			return withCode(exitDBWrite, err)
		}
	case "down":
		if err := migrations.Rollback(ctx); err != nil {
			return withCode(exitDBWrite, err)
		}
	case "status":
		statuses, err := migrations.Status(ctx)
		if err != nil {
			return withCode(exitDB, err)
		}
		for _, st := range statuses {
			line := migrationLine{Version: st.Source.Version, Path: st.Source.Path, State: string(st.State)}
			if err := writeJSONLine(out, line); err != nil {
				return err
			}
		}
	default:
		return withCode(exitUsage, fmt.Errorf("unknown migrate action %q", action))
	}
	return nil
}
