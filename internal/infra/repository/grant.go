package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opencadastre/cadastre/internal/domain"
	"github.com/opencadastre/cadastre/internal/infra/database/models"
)

type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Put upserts a grant row, so repeated grants stay a single row.
func (r *GrantRepository) Put(ctx context.Context, grant domain.AccessGrant) error {
	row := models.AccessGrant{
		RecordID:  grant.RecordID,
		Accessor:  grant.Accessor,
		CanAccess: grant.CanAccess,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}, {Name: "accessor"}},
		DoUpdates: clause.Assignments(map[string]any{"can_access": grant.CanAccess}),
	}).Create(&row).Error
	return errors.Wrap(err, "GrantRepository.Put")
}

func (r *GrantRepository) Get(ctx context.Context, recordID uint64, accessor string) (domain.AccessGrant, error) {
	var row models.AccessGrant
	err := r.db.WithContext(ctx).
		Where("record_id = ? AND accessor = ?", recordID, accessor).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AccessGrant{}, domain.Error{Kind: domain.KindNotFound, Resource: "grant"}
		}
		return domain.AccessGrant{}, errors.Wrap(err, "GrantRepository.Get")
	}
	return domain.AccessGrant{
		RecordID:  row.RecordID,
		Accessor:  row.Accessor,
		CanAccess: row.CanAccess,
	}, nil
}

// Delete removes a grant row; deleting an absent row is not an error.
func (r *GrantRepository) Delete(ctx context.Context, recordID uint64, accessor string) error {
	err := r.db.WithContext(ctx).
		Delete(&models.AccessGrant{}, "record_id = ? AND accessor = ?", recordID, accessor).Error
	return errors.Wrap(err, "GrantRepository.Delete")
}
