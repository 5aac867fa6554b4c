package recon

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
)

// AssetStore is the canonical-register surface the engine writes to.
type AssetStore interface {
	GetAsset(ctx context.Context, id int) (*models.Asset, error)
	GetAllAssets(ctx context.Context) ([]*models.Asset, error)
	UpdateAssetFields(ctx context.Context, id int, fields map[string]interface{}, actor string) error
}

// ChangeRecordStore is the source-record surface.
type ChangeRecordStore interface {
	GetRecord(ctx context.Context, id int) (*models.FilterChangeRecord, error)
	GetRecords(ctx context.Context, window *models.DateWindow) ([]*models.FilterChangeRecord, error)
	MarkSynced(ctx context.Context, id int, actor string, at time.Time) error
}

// AuditStore appends reconcile audit rows. Best effort: a failed
// append is logged, never rolled back into the asset write.
type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}
