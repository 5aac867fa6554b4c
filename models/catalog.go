package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

// ReferenceCatalogEntry is one allow-listed label (asset type or filter
// type). Uniqueness is case-insensitive per kind, enforced by the unique
// index on the lower-cased key so concurrent creates cannot race in a
// duplicate.
type ReferenceCatalogEntry struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Kind      string    `gorm:"size:20;not null;uniqueIndex:idx_catalog_kind_label,priority:1" json:"kind"`
	LabelKey  string    `gorm:"size:100;not null;uniqueIndex:idx_catalog_kind_label,priority:2" json:"-"`
	Label     string    `gorm:"size:100;not null" json:"label"`
	CreatedBy string    `gorm:"size:100" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetCatalogLabels(ctx context.Context, kind CatalogKind) ([]string, error) {
	db := config.GetDB()
	var labels []string
	err := db.WithContext(ctx).Model(&ReferenceCatalogEntry{}).
		Where("kind = ?", kind).
		Order("label").
		Pluck("label", &labels).Error
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// EnsureCatalogEntry creates the label if absent. A write-time conflict
// means another caller created it first, which is success here, not an
// error: creation is at-least-once and idempotent.
func EnsureCatalogEntry(ctx context.Context, kind CatalogKind, label string) (created bool, err error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, utils.NewValidationError("reference catalog", string(kind), "label is required")
	}
	if !kind.IsValid() {
		return false, utils.NewValidationError("reference catalog", "kind", "%q is not a valid catalog kind", kind)
	}

	labelKey := strings.ToLower(label)
	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&ReferenceCatalogEntry{}).
		Where("kind = ? AND label_key = ?", kind, labelKey).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	entry := ReferenceCatalogEntry{
		Kind:      string(kind),
		LabelKey:  labelKey,
		Label:     label,
		CreatedBy: utils.ActorFromContext(ctx),
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func DeleteCatalogEntry(ctx context.Context, kind CatalogKind, label string) error {
	db := config.GetDB()
	result := db.WithContext(ctx).
		Where("kind = ? AND label_key = ?", kind, strings.ToLower(strings.TrimSpace(label))).
		Delete(&ReferenceCatalogEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
