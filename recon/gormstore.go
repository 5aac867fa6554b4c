package recon

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

// GormStores binds the engine's store contracts to the shared gorm
// connection. One value serves all three interfaces.
type GormStores struct{}

func NewGormStores() *GormStores {
	return &GormStores{}
}

func (s *GormStores) GetAsset(ctx context.Context, id int) (*models.Asset, error) {
	return models.GetAsset(ctx, id)
}

func (s *GormStores) GetAllAssets(ctx context.Context) ([]*models.Asset, error) {
	return models.GetAllAssets(ctx)
}

func (s *GormStores) UpdateAssetFields(ctx context.Context, id int, fields map[string]interface{}, actor string) error {
	db := config.GetDB()

	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["modified_by"] = actor

	result := db.WithContext(ctx).Model(&models.Asset{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// MySQL reports zero affected rows for a no-change update, so
		// only treat this as missing when the row really is gone.
		return utils.ValidateResourceId[models.Asset](ctx, id)
	}
	return nil
}

func (s *GormStores) GetRecord(ctx context.Context, id int) (*models.FilterChangeRecord, error) {
	return models.GetFilterChangeRecord(ctx, id)
}

func (s *GormStores) GetRecords(ctx context.Context, window *models.DateWindow) ([]*models.FilterChangeRecord, error) {
	return models.GetFilterChangeRecords(ctx, window)
}

func (s *GormStores) MarkSynced(ctx context.Context, id int, actor string, at time.Time) error {
	return models.UpdateSyncStatus(ctx, id, models.SyncStatusSynced, actor, at)
}

func (s *GormStores) Append(ctx context.Context, entry *models.AuditEntry) error {
	return models.AppendAuditEntry(ctx, entry)
}
