package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

// FilterChangeRecord is one externally produced "filter changed"
// notification waiting to be merged into the asset register. The
// installed date stays as the raw feed text until reconcile time, when
// it must parse under the accepted format.
type FilterChangeRecord struct {
	ID                int        `gorm:"primary_key" json:"id"`
	Location          string     `gorm:"size:255;not null" json:"location" binding:"required"`
	InstalledDateText string     `gorm:"size:50;not null" json:"installed_date" binding:"required"`
	FilterType        string     `gorm:"size:100" json:"filter_type"`
	Barcode           string     `gorm:"size:64;index" json:"barcode"`
	ReasonForChange   string     `gorm:"size:50" json:"reason_for_change"`
	SyncStatus        SyncStatus `gorm:"size:20;not null;default:pending;index" json:"sync_status"`
	SyncedAt          *time.Time `json:"synced_at"`
	SyncedBy          string     `gorm:"size:100" json:"synced_by"`
	SourceRef         string     `gorm:"size:128;index" json:"source_ref"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFilterChangeRecord struct {
	Location          string `json:"location" binding:"required"`
	InstalledDateText string `json:"installed_date" binding:"required"`
	FilterType        string `json:"filter_type"`
	Barcode           string `json:"barcode"`
	ReasonForChange   string `json:"reason_for_change"`
	SourceRef         string `json:"source_ref"`
}

func (input *NewFilterChangeRecord) normalize() {
	input.Barcode = utils.NormalizeBarcode(input.Barcode)
}

func (input *NewFilterChangeRecord) validate() error {
	if input.ReasonForChange != "" && !ReasonForChange(input.ReasonForChange).IsValid() {
		return utils.NewValidationError("filter change record", "reason_for_change",
			"%q is not a recognized reason", input.ReasonForChange)
	}
	return nil
}

func CreateFilterChangeRecord(ctx context.Context, input *NewFilterChangeRecord) (*FilterChangeRecord, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	record := FilterChangeRecord{
		Location:          input.Location,
		InstalledDateText: input.InstalledDateText,
		FilterType:        input.FilterType,
		Barcode:           input.Barcode,
		ReasonForChange:   input.ReasonForChange,
		SyncStatus:        SyncStatusPending,
		SourceRef:         input.SourceRef,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateFilterChangeRecord edits a record the feed got wrong. Only
// pending records are editable; synced ones are already consumed.
func UpdateFilterChangeRecord(ctx context.Context, id int, input *NewFilterChangeRecord) (*FilterChangeRecord, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	record, err := utils.FetchModel[FilterChangeRecord](ctx, id)
	if err != nil {
		return nil, err
	}
	if record.SyncStatus == SyncStatusSynced {
		return nil, utils.ErrorAlreadySynced
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&FilterChangeRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"location":            input.Location,
		"installed_date_text": input.InstalledDateText,
		"filter_type":         input.FilterType,
		"barcode":             input.Barcode,
		"reason_for_change":   input.ReasonForChange,
	}).Error; err != nil {
		return nil, err
	}

	return utils.FetchModel[FilterChangeRecord](ctx, id)
}

func DeleteFilterChangeRecord(ctx context.Context, id int) (*FilterChangeRecord, error) {
	record, err := utils.FetchModel[FilterChangeRecord](ctx, id)
	if err != nil {
		return nil, err
	}
	if record.SyncStatus == SyncStatusSynced {
		return nil, utils.ErrorAlreadySynced
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func GetFilterChangeRecord(ctx context.Context, id int) (*FilterChangeRecord, error) {
	return utils.FetchModel[FilterChangeRecord](ctx, id)
}

// DateWindow restricts a listing to records created inside [From, To].
// A nil window means all time.
type DateWindow struct {
	From time.Time
	To   time.Time
}

func GetFilterChangeRecords(ctx context.Context, window *DateWindow) ([]*FilterChangeRecord, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Order("created_at DESC, id DESC")
	if window != nil {
		dbCtx = dbCtx.Where("created_at BETWEEN ? AND ?", window.From, window.To)
	}

	var records []*FilterChangeRecord
	if err := dbCtx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateSyncStatus is the source-record half of a reconcile. It guards
// the pending -> synced transition so a record is consumed once.
func UpdateSyncStatus(ctx context.Context, id int, status SyncStatus, actor string, at time.Time) error {
	if !status.IsValid() {
		return utils.NewValidationError("filter change record", "sync_status", "%q is not a valid status", status)
	}

	db := config.GetDB()
	updates := map[string]interface{}{
		"sync_status": status,
	}
	if status == SyncStatusSynced {
		updates["synced_at"] = at
		updates["synced_by"] = actor
	}

	result := db.WithContext(ctx).Model(&FilterChangeRecord{}).
		Where("id = ? AND sync_status <> ?", id, SyncStatusSynced).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the record is gone or it was synced by a concurrent
		// call; the caller's idempotency guard distinguishes the two.
		if err := utils.ValidateResourceId[FilterChangeRecord](ctx, id); err != nil {
			return err
		}
		return utils.ErrorAlreadySynced
	}
	return nil
}
