package recon

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"github.com/sirupsen/logrus"
)

const syncedVia = "Synced via reconciliation"

// Synchronizer applies confirmed change records to the asset register.
// The three writes per reconcile (asset update, record mark, audit
// append) are independent operations against the store; a crash
// between them is recovered by the idempotency guard and the repair
// sweep, not by a transaction.
type Synchronizer struct {
	Assets  AssetStore
	Records ChangeRecordStore
	Audit   AuditStore

	// Now is swappable in tests.
	Now func() time.Time

	logger *logrus.Logger
}

func NewSynchronizer(assets AssetStore, records ChangeRecordStore, audit AuditStore) *Synchronizer {
	return &Synchronizer{
		Assets:  assets,
		Records: records,
		Audit:   audit,
		Now:     time.Now,
		logger:  config.GetLogger(),
	}
}

// Reconcile merges one change record into its matched asset. The
// eligibility checks run here regardless of what the caller selected,
// since list-time selection and execution are not atomic.
func (s *Synchronizer) Reconcile(ctx context.Context, recordId int) (*ReconcileResult, error) {
	record, err := s.Records.GetRecord(ctx, recordId)
	if err != nil {
		return nil, err
	}

	assets, err := s.Assets.GetAllAssets(ctx)
	if err != nil {
		return nil, err
	}

	return s.reconcileRecord(ctx, record, NewAssetIndex(assets))
}

func (s *Synchronizer) reconcileRecord(ctx context.Context, record *models.FilterChangeRecord, idx *AssetIndex) (*ReconcileResult, error) {
	if record.SyncStatus == models.SyncStatusSynced {
		return nil, utils.ErrorAlreadySynced
	}

	matched, _, _ := Match(record, idx)
	if matched == nil {
		return nil, utils.ErrorNoMatchedAsset
	}
	if matched.Barcode == "" {
		return nil, utils.ErrorBarcodeRequired
	}

	installedOn, err := utils.ParseChangeDate(record.InstalledDateText)
	if err != nil {
		return nil, utils.NewValidationError("filter change record", "installed_date", "%v", err)
	}
	expiry := utils.ComputeFilterExpiry(installedOn)

	// Fetch a fresh snapshot for the diff; the index may be stale.
	before, err := s.Assets.GetAsset(ctx, matched.ID)
	if err != nil {
		return nil, err
	}

	reason := record.ReasonForChange
	if reason == "" {
		reason = models.ReasonNotSpecified.String()
	}

	fields := map[string]interface{}{
		"filter_installed_on": installedOn,
		"filter_expiry":       expiry,
		"filters_on":          true,
		"filter_needed":       true,
		"reason_for_change":   reason,
	}
	if record.FilterType != "" {
		fields["filter_type"] = record.FilterType
	}

	actor := utils.ActorFromContext(ctx)
	now := s.Now()

	if err := s.Assets.UpdateAssetFields(ctx, before.ID, fields, actor); err != nil {
		return nil, err
	}

	if err := s.Records.MarkSynced(ctx, record.ID, actor, now); err != nil {
		// The asset write already landed. An already-synced outcome
		// here means a concurrent call won; surface it so the caller
		// does not double-count.
		return nil, err
	}

	result := &ReconcileResult{
		RecordId: record.ID,
		AssetId:  before.ID,
		Barcode:  before.Barcode,
		Expiry:   expiry,
		SyncedAt: now,
		SyncedBy: actor,
	}

	after := *before
	after.FilterInstalledOn = &installedOn
	after.FilterExpiry = &expiry
	after.FiltersOn = utils.NewTrue()
	after.FilterNeeded = utils.NewTrue()
	after.ReasonForChange = reason
	if record.FilterType != "" {
		after.FilterType = record.FilterType
	}

	changes := models.DiffEntities(before, &after, models.AuditExclusions()...)
	changes = append(changes, models.FieldChange{
		Field:    "reconciliationStatus",
		OldValue: utils.NilIfEmpty("Not synced"),
		NewValue: utils.NilIfEmpty(syncedVia),
	})

	entry := models.NewAuditEntry(before.ID, models.AuditActionReconcile, actor, changes)
	if err := s.Audit.Append(ctx, entry); err != nil {
		config.LogError(s.logger, "recon", "Reconcile", "audit append", record.ID, err)
		result.AuditSent = false
		return result, nil
	}
	result.AuditSent = true
	return result, nil
}

// ReconcileMany confirms a selection of records, isolating failures
// per item. A hit deadline returns the partial report instead of
// discarding completed work.
func (s *Synchronizer) ReconcileMany(ctx context.Context, recordIds []int) (*BulkReconcileReport, error) {
	unlock, err := utils.SyncLock(ctx, "bulk", "recon", "ReconcileMany")
	if err != nil {
		return nil, err
	}
	defer unlock()

	assets, err := s.Assets.GetAllAssets(ctx)
	if err != nil {
		return nil, err
	}
	idx := NewAssetIndex(assets)

	report := &BulkReconcileReport{Requested: len(recordIds)}
	for _, id := range recordIds {
		if ctx.Err() != nil {
			report.Deadline = true
			break
		}

		record, err := s.Records.GetRecord(ctx, id)
		if err != nil {
			report.Failed = append(report.Failed, ItemFailure{RecordId: id, Message: err.Error()})
			continue
		}

		result, err := s.reconcileRecord(ctx, record, idx)
		if err != nil {
			report.Failed = append(report.Failed, ItemFailure{RecordId: id, Message: err.Error()})
			continue
		}
		report.Succeeded = append(report.Succeeded, *result)
	}
	return report, nil
}
