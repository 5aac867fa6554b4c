package recon

import (
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
)

type ReconStatus string

const (
	ReconStatusPending   ReconStatus = "pending"
	ReconStatusConfirmed ReconStatus = "confirmed"
	ReconStatusMismatch  ReconStatus = "mismatch"
	ReconStatusNotFound  ReconStatus = "not_found"
)

func (s ReconStatus) String() string {
	return string(s)
}

// ReconciliationItem is a derived view pairing one change record with
// whatever asset the matcher found for it. It is recomputed on demand
// and never persisted.
type ReconciliationItem struct {
	Record        *models.FilterChangeRecord `json:"record"`
	Asset         *models.Asset              `json:"asset,omitempty"`
	BarcodeMatch  bool                       `json:"barcode_match"`
	LocationMatch bool                       `json:"location_match"`
	Status        ReconStatus                `json:"status"`
}

type ReconcileResult struct {
	RecordId  int       `json:"record_id"`
	AssetId   int       `json:"asset_id"`
	Barcode   string    `json:"barcode"`
	Expiry    time.Time `json:"filter_expiry"`
	SyncedAt  time.Time `json:"synced_at"`
	SyncedBy  string    `json:"synced_by"`
	AuditSent bool      `json:"audit_sent"`
}

type ItemFailure struct {
	RecordId int    `json:"record_id"`
	Message  string `json:"message"`
}

// BulkReconcileReport carries per-item outcomes of a bulk confirm.
// Partial success is the normal case, not an error.
type BulkReconcileReport struct {
	Requested int               `json:"requested"`
	Succeeded []ReconcileResult `json:"succeeded"`
	Failed    []ItemFailure     `json:"failed"`
	// Deadline is set when the caller's context expired before all
	// items were attempted; untouched items are not listed as failed.
	Deadline bool `json:"deadline_hit,omitempty"`
}
