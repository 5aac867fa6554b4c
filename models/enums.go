package models

type AssetStatus string

const (
	AssetStatusActive         AssetStatus = "ACTIVE"
	AssetStatusInactive       AssetStatus = "INACTIVE"
	AssetStatusMaintenance    AssetStatus = "MAINTENANCE"
	AssetStatusDecommissioned AssetStatus = "DECOMMISSIONED"
)

var AllAssetStatus = []AssetStatus{
	AssetStatusActive,
	AssetStatusInactive,
	AssetStatusMaintenance,
	AssetStatusDecommissioned,
}

func (e AssetStatus) IsValid() bool {
	switch e {
	case AssetStatusActive, AssetStatusInactive, AssetStatusMaintenance, AssetStatusDecommissioned:
		return true
	}
	return false
}

func (e AssetStatus) String() string {
	return string(e)
}

// SyncStatus is the lifecycle of an externally produced filter-change
// record: created pending, consumed exactly once into synced, failed on
// a rejected reconcile.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

func (e SyncStatus) IsValid() bool {
	switch e {
	case SyncStatusPending, SyncStatusSynced, SyncStatusFailed:
		return true
	}
	return false
}

func (e SyncStatus) String() string {
	return string(e)
}

// ReasonForChange is the externally supplied reason on a filter-change
// record. Free-text on assets, enum on the feed.
type ReasonForChange string

const (
	ReasonExpired         ReasonForChange = "Expired"
	ReasonRemedial        ReasonForChange = "Remedial"
	ReasonBlocked         ReasonForChange = "Blocked"
	ReasonMissing         ReasonForChange = "Missing"
	ReasonNewInstallation ReasonForChange = "New Installation"

	// ReasonNotSpecified is substituted when the feed omits a reason.
	ReasonNotSpecified ReasonForChange = "Not specified"
)

var AllReasonForChange = []ReasonForChange{
	ReasonExpired,
	ReasonRemedial,
	ReasonBlocked,
	ReasonMissing,
	ReasonNewInstallation,
}

func (e ReasonForChange) IsValid() bool {
	for _, r := range AllReasonForChange {
		if e == r {
			return true
		}
	}
	return false
}

func (e ReasonForChange) String() string {
	return string(e)
}

type AuditAction string

const (
	AuditActionCreate        AuditAction = "CREATE"
	AuditActionUpdate        AuditAction = "UPDATE"
	AuditActionDelete        AuditAction = "DELETE"
	AuditActionReconcile     AuditAction = "RECONCILE"
	AuditActionBulkReconcile AuditAction = "BULK_RECONCILE"
	AuditActionImport        AuditAction = "IMPORT"
)

type CatalogKind string

const (
	CatalogKindAssetType  CatalogKind = "asset_type"
	CatalogKindFilterType CatalogKind = "filter_type"
)

func (e CatalogKind) IsValid() bool {
	return e == CatalogKindAssetType || e == CatalogKindFilterType
}

func (e CatalogKind) String() string {
	return string(e)
}
