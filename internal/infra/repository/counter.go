package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/opencadastre/cadastre/internal/infra/database/models"
)

type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// Current reads the record counter. The counter only moves inside
// RecordRepository.Create, under its row lock.
func (r *CounterRepository) Current(ctx context.Context) (uint64, error) {
	var counter models.Counter
	err := r.db.WithContext(ctx).
		Where("id = ?", counterRowID).
		Take(&counter).Error
	if err != nil {
		return 0, errors.Wrap(err, "CounterRepository.Current")
	}
	return counter.Value, nil
}
