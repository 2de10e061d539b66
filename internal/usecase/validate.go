package usecase

import (
	"github.com/opencadastre/cadastre"
	"github.com/opencadastre/cadastre/internal/domain"
)

const (
	maxNameLength     = 64
	maxSummaryLength  = 128
	maxVolume         = 1_000_000_000
	maxCategories     = 10
	maxCategoryLength = 32
)

// ValidateRecordInput checks the mutable record fields. Constraints are
// checked in a fixed order (name, volume, summary, categories) and the
// first violation is returned.
func ValidateRecordInput(input cadastre.RecordInput) error {
	if len(input.Name) == 0 || len(input.Name) > maxNameLength {
		return domain.Error{Kind: domain.KindInvalidName, Resource: "name"}
	}
	if input.Volume <= 0 || input.Volume >= maxVolume {
		return domain.ErrInvalidVolume
	}
	if len(input.Summary) == 0 || len(input.Summary) > maxSummaryLength {
		return domain.Error{Kind: domain.KindInvalidName, Resource: "summary"}
	}
	return ValidateCategories(input.Categories)
}

// ValidateCategories checks the category list: 1 to 10 labels, each
// non-empty and at most 32 bytes.
func ValidateCategories(categories []string) error {
	if len(categories) < 1 || len(categories) > maxCategories {
		return domain.ErrInvalidCategoryFormat
	}
	for _, label := range categories {
		if len(label) == 0 || len(label) > maxCategoryLength {
			return domain.ErrInvalidCategoryFormat
		}
	}
	return nil
}
