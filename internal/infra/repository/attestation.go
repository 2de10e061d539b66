package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opencadastre/cadastre/internal/domain"
	"github.com/opencadastre/cadastre/internal/infra/database/models"
)

type AttestationRepository struct {
	db *gorm.DB
}

func NewAttestationRepository(db *gorm.DB) *AttestationRepository {
	return &AttestationRepository{db: db}
}

// Put records or overwrites the attestation for a record.
func (r *AttestationRepository) Put(ctx context.Context, attestation domain.Attestation) error {
	row := models.Attestation{
		RecordID:      attestation.RecordID,
		Authenticated: attestation.Authenticated,
		Attestor:      attestation.Attestor,
		AttestedAt:    attestation.AttestedAt,
		Notes:         attestation.Notes,
		Fingerprint:   attestation.Fingerprint,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "record_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"authenticated": attestation.Authenticated,
			"attestor":      attestation.Attestor,
			"attested_at":   attestation.AttestedAt,
			"notes":         attestation.Notes,
			"fingerprint":   attestation.Fingerprint,
		}),
	}).Create(&row).Error
	return errors.Wrap(err, "AttestationRepository.Put")
}

func (r *AttestationRepository) Get(ctx context.Context, recordID uint64) (domain.Attestation, error) {
	var row models.Attestation
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Attestation{}, domain.Error{Kind: domain.KindNotFound, Resource: "attestation"}
		}
		return domain.Attestation{}, errors.Wrap(err, "AttestationRepository.Get")
	}
	return domain.Attestation{
		RecordID:      row.RecordID,
		Authenticated: row.Authenticated,
		Attestor:      row.Attestor,
		AttestedAt:    row.AttestedAt,
		Notes:         row.Notes,
		Fingerprint:   row.Fingerprint,
	}, nil
}
