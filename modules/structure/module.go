package structure

import (
	"embed"
	"io/fs"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/infrastructure/persistence"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/presentation/controllers"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/services"
	"github.com/atviriduomenys/katalogas-sub000/pkg/application"
	"github.com/atviriduomenys/katalogas-sub000/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/*.sql
var migrationFiles embed.FS

// MigrationFiles holds the goose migrations of the structure tables.
func MigrationFiles() fs.FS {
	sub, err := fs.Sub(migrationFiles, "infrastructure/persistence/schema")
	if err != nil {
		panic(err)
	}
	return sub
}

func NewModule(opts configuration.StructureOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts configuration.StructureOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(m.Name(), MigrationFiles())

	repo := persistence.NewStructureRepository()
	app.RegisterServices(
		services.NewStructureService(repo, app.EventPublisher(), ServiceOptions(m.opts)),
		services.NewVersionService(repo, app.EventPublisher()),
	)
	app.RegisterControllers(
		controllers.NewStructureController(app, controllers.ControllerOptions{
			MaxUploadSize:    m.opts.MaxUploadSize,
			ImportsPerMinute: m.opts.ImportsPerMinute,
		}),
	)
	return nil
}

func (m *Module) Name() string {
	return "structure"
}

// ServiceOptions maps configuration onto import options.
func ServiceOptions(opts configuration.StructureOptions) services.Options {
	return services.Options{
		APIHost:        opts.APIHost,
		Strict:         opts.StrictImport,
		MaxDenormDepth: opts.MaxDenormDepth,
	}
}
