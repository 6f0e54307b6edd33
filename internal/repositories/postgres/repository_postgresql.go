package postgres

import (
	"context"

	"github.com/campusworks/gradebook-service/internal/repositories"
	"gorm.io/gorm"
)

// gormRepository bundles the GORM-backed repositories behind the
// Repository interface. A transaction-scoped copy shares the same
// construction with tx substituted for db.
type gormRepository struct {
	db       *gorm.DB
	category *CategoryPostgreSQL
	curve    *CurvePostgreSQL
	scale    *ScalePostgreSQL
	entry    *EntryPostgreSQL
	history  *HistoryPostgreSQL
	dispute  *DisputePostgreSQL
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		db:       db,
		category: NewCategoryPostgreSQL(db),
		curve:    NewCurvePostgreSQL(db),
		scale:    NewScalePostgreSQL(db),
		entry:    NewEntryPostgreSQL(db),
		history:  NewHistoryPostgreSQL(db),
		dispute:  NewDisputePostgreSQL(db),
	}
}

func (r *gormRepository) Category() repositories.CategoryRepository { return r.category }
func (r *gormRepository) Curve() repositories.CurveRepository       { return r.curve }
func (r *gormRepository) Scale() repositories.ScaleRepository       { return r.scale }
func (r *gormRepository) Entry() repositories.EntryRepository       { return r.entry }
func (r *gormRepository) History() repositories.HistoryRepository   { return r.history }
func (r *gormRepository) Dispute() repositories.DisputeRepository   { return r.dispute }

func (r *gormRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// applyPaginationAndSort applies the shared pagination/ordering policy.
// allowed maps the caller-facing sort keys to column names; unknown
// keys fall back to created_at.
func applyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int, allowed map[string]string) *gorm.DB {
	column, ok := allowed[sortBy]
	if !ok {
		column = "created_at"
	}

	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	query = query.Order(column + " " + direction)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
