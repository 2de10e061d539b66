package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opencadastre/cadastre/internal/domain"
	"github.com/opencadastre/cadastre/internal/infra/database/models"
)

const counterRowID = 1

type RecordRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

func NewRecordRepository(db *gorm.DB, mc *memcache.Client) *RecordRepository {
	return &RecordRepository{db: db, mc: mc}
}

// Create assigns the next record id under a row lock on the counter and
// writes the record plus the holder's grant row in one transaction.
func (r *RecordRepository) Create(ctx context.Context, record domain.Record) (uint64, error) {
	categories, err := json.Marshal(record.Categories)
	if err != nil {
		return 0, errors.Wrap(err, "RecordRepository.Create: marshal categories")
	}

	var id uint64
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter models.Counter
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", counterRowID).
			Take(&counter).Error
		if err != nil {
			return errors.Wrap(err, "lock counter")
		}

		counter.Value++
		if err := tx.Save(&counter).Error; err != nil {
			return errors.Wrap(err, "advance counter")
		}
		id = counter.Value

		row := models.Record{
			ID:           id,
			Name:         record.Name,
			Holder:       record.Holder,
			Volume:       record.Volume,
			RegisteredAt: record.RegisteredAt,
			Summary:      record.Summary,
			Categories:   string(categories),
		}
		if err := tx.Create(&row).Error; err != nil {
			return errors.Wrap(err, "create record")
		}

		grant := models.AccessGrant{
			RecordID:  id,
			Accessor:  record.Holder,
			CanAccess: true,
		}
		return errors.Wrap(tx.Create(&grant).Error, "create holder grant")
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (r *RecordRepository) Get(ctx context.Context, id uint64) (domain.Record, error) {
	key := recordCacheKey(id)
	if item, err := r.mc.Get(key); err == nil {
		var record domain.Record
		if err := json.Unmarshal(item.Value, &record); err == nil {
			return record, nil
		}
	}

	var row models.Record
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Record{}, domain.Error{Kind: domain.KindNotFound, Resource: "record"}
		}
		return domain.Record{}, errors.Wrap(err, "RecordRepository.Get")
	}

	record, err := rowToDomain(row)
	if err != nil {
		return domain.Record{}, err
	}

	if encoded, err := json.Marshal(record); err == nil {
		r.mc.Set(&memcache.Item{Key: key, Value: encoded, Expiration: 60})
	}

	return record, nil
}

func (r *RecordRepository) Update(ctx context.Context, record domain.Record) error {
	categories, err := json.Marshal(record.Categories)
	if err != nil {
		return errors.Wrap(err, "RecordRepository.Update: marshal categories")
	}

	result := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"name":       record.Name,
			"holder":     record.Holder,
			"volume":     record.Volume,
			"summary":    record.Summary,
			"categories": string(categories),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "RecordRepository.Update")
	}
	if result.RowsAffected == 0 {
		return domain.Error{Kind: domain.KindNotFound, Resource: "record"}
	}

	r.invalidate(record.ID)
	return nil
}

// Delete removes the record and cascades its grant and attestation rows.
func (r *RecordRepository) Delete(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.AccessGrant{}, "record_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "delete grants")
		}
		if err := tx.Delete(&models.Attestation{}, "record_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "delete attestation")
		}

		result := tx.Delete(&models.Record{}, "id = ?", id)
		if result.Error != nil {
			return errors.Wrap(result.Error, "delete record")
		}
		if result.RowsAffected == 0 {
			return domain.Error{Kind: domain.KindNotFound, Resource: "record"}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidate(id)
	return nil
}

func (r *RecordRepository) invalidate(id uint64) {
	// a miss is fine, stale entries expire on their own
	_ = r.mc.Delete(recordCacheKey(id))
}

func recordCacheKey(id uint64) string {
	return fmt.Sprintf("record:%d", id)
}

func rowToDomain(row models.Record) (domain.Record, error) {
	var categories []string
	if err := json.Unmarshal([]byte(row.Categories), &categories); err != nil {
		return domain.Record{}, errors.Wrap(err, "unmarshal categories")
	}
	return domain.Record{
		ID:           row.ID,
		Name:         row.Name,
		Holder:       row.Holder,
		Volume:       row.Volume,
		RegisteredAt: row.RegisteredAt,
		Summary:      row.Summary,
		Categories:   categories,
	}, nil
}
