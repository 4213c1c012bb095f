package services

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

// levels stores the average maturity level of every imported model and of
// the dataset. A model averages itself, its base and its given properties.
func (r *run) levels() error {
	var all []int
	for _, m := range r.models {
		var values []int
		values = appendLevel(values, r.meta[m.record.Owner()])
		if m.record.BaseID != nil {
			values = appendLevel(values, r.meta[structure.Owner{Kind: structure.KindBase, ID: *m.record.BaseID}])
		}
		for _, p := range m.props {
			values = appendLevel(values, r.meta[p.record.Owner()])
		}
		if err := r.setAverage(m.record.Owner(), average(values)); err != nil {
			return err
		}
		all = append(all, values...)
	}
	return r.setAverage(r.dataset.Owner(), average(all))
}

func appendLevel(values []int, m *structure.Metadata) []int {
	if m == nil || m.Level == nil {
		return values
	}
	return append(values, *m.Level)
}

func average(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromInt(int64(v)))
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(1).Float64()
	return &avg
}

// setAverage writes an aggregate without bumping the version.
func (r *run) setAverage(owner structure.Owner, avg *float64) error {
	m := r.meta[owner]
	if m == nil {
		return nil
	}
	if m.AverageLevel == nil && avg == nil || m.AverageLevel != nil && avg != nil && *m.AverageLevel == *avg {
		return nil
	}
	m.AverageLevel = avg
	if err := r.repo.UpdateMetadata(r.ctx, m); err != nil {
		return errors.Wrap(err, "store average level")
	}
	return nil
}
