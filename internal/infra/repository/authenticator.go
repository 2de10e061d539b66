package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opencadastre/cadastre/internal/domain"
	"github.com/opencadastre/cadastre/internal/infra/database/models"
)

type AuthenticatorRepository struct {
	db *gorm.DB
}

func NewAuthenticatorRepository(db *gorm.DB) *AuthenticatorRepository {
	return &AuthenticatorRepository{db: db}
}

func (r *AuthenticatorRepository) Put(ctx context.Context, authenticator domain.Authenticator) error {
	row := models.Authenticator{
		Identity:   authenticator.Identity,
		Authorized: authenticator.Authorized,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.Assignments(map[string]any{"authorized": authenticator.Authorized}),
	}).Create(&row).Error
	return errors.Wrap(err, "AuthenticatorRepository.Put")
}

func (r *AuthenticatorRepository) Get(ctx context.Context, identity string) (domain.Authenticator, error) {
	var row models.Authenticator
	err := r.db.WithContext(ctx).
		Where("identity = ?", identity).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Authenticator{}, domain.Error{Kind: domain.KindNotFound, Resource: "authenticator"}
		}
		return domain.Authenticator{}, errors.Wrap(err, "AuthenticatorRepository.Get")
	}
	return domain.Authenticator{
		Identity:   row.Identity,
		Authorized: row.Authorized,
	}, nil
}

// Delete removes an authenticator row; absent rows are not an error.
func (r *AuthenticatorRepository) Delete(ctx context.Context, identity string) error {
	err := r.db.WithContext(ctx).
		Delete(&models.Authenticator{}, "identity = ?", identity).Error
	return errors.Wrap(err, "AuthenticatorRepository.Delete")
}
