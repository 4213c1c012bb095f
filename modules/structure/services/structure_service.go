package services

import (
	"bytes"
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/manifest"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
	"github.com/atviriduomenys/katalogas-sub000/pkg/constants"
	"github.com/atviriduomenys/katalogas-sub000/pkg/eventbus"
)

var tracer = otel.Tracer("github.com/atviriduomenys/katalogas-sub000/modules/structure/services")

type StructureService struct {
	repo      structure.Repository
	publisher eventbus.EventBus
	opts      Options
}

func NewStructureService(repo structure.Repository, publisher eventbus.EventBus, opts Options) *StructureService {
	if opts.MaxDenormDepth <= 0 {
		opts.MaxDenormDepth = 8
	}
	return &StructureService{repo: repo, publisher: publisher, opts: opts}
}

type ImportInput struct {
	DatasetID int64  `validate:"required,gt=0"`
	Filename  string `validate:"max=255"`
	// Format is csv or xlsx. It is sniffed from the content when empty.
	Format  string `validate:"omitempty,oneof=csv xlsx"`
	Content []byte `validate:"required"`
}

// Import stores the manifest file of a dataset and merges it into the
// dataset structure in one transaction.
func (s *StructureService) Import(ctx context.Context, in ImportInput) (*ImportResult, error) {
	ctx, span := tracer.Start(ctx, "structure.Import")
	defer span.End()
	span.SetAttributes(attribute.Int64("dataset.id", in.DatasetID), attribute.String("structure.filename", in.Filename))
	started := time.Now()

	if err := constants.Validate.Struct(in); err != nil {
		return nil, errors.Wrap(err, "validate import")
	}
	format := manifest.DetectFormat(in.Content, in.Filename)
	if in.Format != "" {
		f, ok := manifest.ParseFormat(in.Format)
		if !ok {
			return nil, errors.Wrapf(structure.ErrUnsupportedFormat, "format %q", in.Format)
		}
		format = f
	}
	state := manifest.ReadState(in.Content, format)
	log := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"dataset_id": in.DatasetID,
		"filename":   in.Filename,
		"format":     format,
	})

	var res *ImportResult
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockDataset(ctx, in.DatasetID); err != nil {
			return errors.Wrap(err, "lock dataset")
		}
		ds, err := s.repo.GetDataset(ctx, in.DatasetID)
		if err != nil {
			return errors.Wrapf(err, "get dataset %d", in.DatasetID)
		}
		file := &structure.Structure{
			DatasetID: ds.ID,
			Filename:  in.Filename,
			Format:    string(format),
			Content:   in.Content,
		}
		if err := s.repo.SaveStructure(ctx, file); err != nil {
			return errors.Wrap(err, "save structure file")
		}
		res, err = reconcile(ctx, s.repo, s.opts, log, ds, file.Owner(), state)
		return err
	})
	recordImport(res, err, started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "import structure")
	}

	log.WithFields(logrus.Fields{
		"created":   res.Created,
		"updated":   res.Updated,
		"deleted":   res.Deleted,
		"rejected":  res.Rejected,
		"errors":    len(res.Errors),
		"file_errs": len(res.FileErrors),
	}).Info("structure imported")
	if s.publisher != nil {
		s.publisher.Publish(&StructureImported{DatasetID: in.DatasetID, Filename: in.Filename, Result: res})
	}
	return res, nil
}

// Check reads a manifest without touching storage.
func (s *StructureService) Check(content []byte, filename string) manifest.State {
	return manifest.ReadState(content, manifest.DetectFormat(content, filename))
}

// CreateDataset registers a dataset that structures can be imported into.
func (s *StructureService) CreateDataset(ctx context.Context, name string) (*structure.Dataset, error) {
	ds := &structure.Dataset{Name: name}
	if err := s.repo.CreateDataset(ctx, ds); err != nil {
		return nil, errors.Wrap(err, "create dataset")
	}
	return ds, nil
}

// Export renders the stored structure of a dataset as a manifest file.
func (s *StructureService) Export(ctx context.Context, datasetID int64, format manifest.Format) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "structure.Export")
	defer span.End()
	span.SetAttributes(attribute.Int64("dataset.id", datasetID), attribute.String("structure.format", string(format)))

	rows, err := s.ExportRows(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch format {
	case manifest.FormatCSV:
		err = manifest.WriteCSV(&buf, rows)
	case manifest.FormatXLSX:
		err = manifest.WriteXLSX(&buf, rows)
	default:
		return nil, errors.Wrapf(structure.ErrUnsupportedFormat, "format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(err, "write manifest")
	}
	return buf.Bytes(), nil
}

// ExportRows returns the stored structure of a dataset as manifest rows.
func (s *StructureService) ExportRows(ctx context.Context, datasetID int64) ([]manifest.Row, error) {
	ds, err := s.repo.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, errors.Wrapf(err, "get dataset %d", datasetID)
	}
	ex, err := newExporter(ctx, s.repo, ds)
	if err != nil {
		return nil, err
	}
	if err := ex.export(); err != nil {
		return nil, errors.Wrap(err, "export structure")
	}
	return ex.rows, nil
}

// Comments lists the comments attached to owner.
func (s *StructureService) Comments(ctx context.Context, owner structure.Owner) ([]*structure.Comment, error) {
	comments, err := s.repo.ListComments(ctx, owner)
	if err != nil {
		return nil, errors.Wrapf(err, "list comments of %s", owner)
	}
	return comments, nil
}

// StructureFile returns the manifest file last imported for a dataset.
func (s *StructureService) StructureFile(ctx context.Context, datasetID int64) (*structure.Structure, error) {
	st, err := s.repo.GetStructure(ctx, datasetID)
	if err != nil {
		return nil, errors.Wrapf(err, "get structure of dataset %d", datasetID)
	}
	return st, nil
}
