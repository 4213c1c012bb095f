package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
	"github.com/atviriduomenys/katalogas-sub000/pkg/composables"
	"github.com/atviriduomenys/katalogas-sub000/pkg/constants"
	"github.com/atviriduomenys/katalogas-sub000/pkg/eventbus"
)

type VersionService struct {
	repo      structure.Repository
	publisher eventbus.EventBus
}

func NewVersionService(repo structure.Repository, publisher eventbus.EventBus) *VersionService {
	return &VersionService{repo: repo, publisher: publisher}
}

type CreateVersionInput struct {
	DatasetID   int64  `validate:"required,gt=0"`
	Name        string `validate:"required,max=255"`
	Description string `validate:"max=4000"`
}

// Create releases a version of a dataset structure. Every draft metadata
// row is frozen into the version and stops being a draft.
func (s *VersionService) Create(ctx context.Context, in CreateVersionInput) (*structure.Version, int, error) {
	ctx, span := tracer.Start(ctx, "structure.CreateVersion")
	defer span.End()
	span.SetAttributes(attribute.Int64("dataset.id", in.DatasetID))

	if err := constants.Validate.Struct(in); err != nil {
		return nil, 0, errors.Wrap(err, "validate version")
	}
	var (
		version *structure.Version
		frozen  int
	)
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockDataset(ctx, in.DatasetID); err != nil {
			return errors.Wrap(err, "lock dataset")
		}
		if _, err := s.repo.GetDataset(ctx, in.DatasetID); err != nil {
			return errors.Wrapf(err, "get dataset %d", in.DatasetID)
		}
		drafts, err := s.repo.FindMetadata(ctx, structure.MetadataFilter{DatasetID: in.DatasetID, DraftOnly: true})
		if err != nil {
			return errors.Wrap(err, "find drafts")
		}
		if len(drafts) == 0 {
			return structure.ErrNoDrafts
		}
		bases, err := s.baseNames(ctx, in.DatasetID)
		if err != nil {
			return err
		}

		version = &structure.Version{DatasetID: in.DatasetID, Name: in.Name, Description: in.Description}
		if err := s.repo.CreateVersion(ctx, version); err != nil {
			return errors.Wrap(err, "create version")
		}
		for _, m := range drafts {
			mv := &structure.MetadataVersion{
				VersionID:  version.ID,
				MetadataID: m.ID,
				Version:    m.Version,
				Name:       m.Name,
				Type:       m.Type,
				Ref:        m.Ref,
				Source:     m.Source,
				Prepare:    m.Prepare,
				LevelGiven: m.LevelGiven,
				Access:     m.Access,
			}
			if m.Owner.Kind == structure.KindModel {
				mv.Base = bases[m.Owner.ID]
			}
			if err := s.repo.CreateMetadataVersion(ctx, mv); err != nil {
				return errors.Wrap(err, "freeze metadata")
			}
			m.Draft = false
			if err := s.repo.UpdateMetadata(ctx, m); err != nil {
				return errors.Wrap(err, "release metadata")
			}
		}
		frozen = len(drafts)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, 0, errors.Wrap(err, "create version")
	}

	structureVersions.Inc()
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"dataset_id": in.DatasetID,
		"version":    version.Name,
		"frozen":     frozen,
	}).Info("structure version created")
	if s.publisher != nil {
		s.publisher.Publish(&VersionCreated{DatasetID: in.DatasetID, Version: version, Frozen: frozen})
	}
	return version, frozen, nil
}

// baseNames maps model ids to the name of the model they inherit from.
func (s *VersionService) baseNames(ctx context.Context, datasetID int64) (map[int64]string, error) {
	models, err := s.repo.ListModels(ctx, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "list models")
	}
	bases, err := s.repo.ListBases(ctx, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, "list bases")
	}
	baseModel := make(map[int64]int64, len(bases))
	for _, b := range bases {
		baseModel[b.ID] = b.ModelID
	}
	out := map[int64]string{}
	for _, m := range models {
		if m.BaseID == nil {
			continue
		}
		target, ok := baseModel[*m.BaseID]
		if !ok {
			continue
		}
		owner := structure.Owner{Kind: structure.KindModel, ID: target}
		rows, err := s.repo.FindMetadata(ctx, structure.MetadataFilter{Owner: &owner})
		if err != nil {
			return nil, errors.Wrap(err, "find base model")
		}
		if len(rows) > 0 {
			out[m.ID] = rows[0].Name
		}
	}
	return out, nil
}

// Versions lists the released versions of a dataset.
func (s *VersionService) Versions(ctx context.Context, datasetID int64) ([]*structure.Version, error) {
	versions, err := s.repo.ListVersions(ctx, datasetID)
	if err != nil {
		return nil, errors.Wrapf(err, "list versions of dataset %d", datasetID)
	}
	return versions, nil
}
