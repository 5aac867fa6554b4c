package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

// NOTE: These tests are intentionally DB-free. They validate the
// engine's semantics (idempotency, per-item isolation, the write
// sequence) against in-memory stores. Full DB integration tests need
// an environment that can run MySQL + Redis.

type fakeStores struct {
	assets  map[int]*models.Asset
	records map[int]*models.FilterChangeRecord
	audits  []*models.AuditEntry

	updateCalls int
	failUpdate  bool
	failAudit   bool
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		assets:  map[int]*models.Asset{},
		records: map[int]*models.FilterChangeRecord{},
	}
}

func (f *fakeStores) GetAsset(ctx context.Context, id int) (*models.Asset, error) {
	a, ok := f.assets[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStores) GetAllAssets(ctx context.Context) ([]*models.Asset, error) {
	out := make([]*models.Asset, 0, len(f.assets))
	for i := 1; i <= len(f.assets); i++ {
		if a, ok := f.assets[i]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStores) UpdateAssetFields(ctx context.Context, id int, fields map[string]interface{}, actor string) error {
	if f.failUpdate {
		return errors.New("store unavailable")
	}
	a, ok := f.assets[id]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	f.updateCalls++
	if v, ok := fields["filter_installed_on"].(time.Time); ok {
		a.FilterInstalledOn = &v
	}
	if v, ok := fields["filter_expiry"].(time.Time); ok {
		a.FilterExpiry = &v
	}
	if v, ok := fields["filters_on"].(bool); ok {
		a.FiltersOn = &v
	}
	if v, ok := fields["filter_needed"].(bool); ok {
		a.FilterNeeded = &v
	}
	if v, ok := fields["reason_for_change"].(string); ok {
		a.ReasonForChange = v
	}
	if v, ok := fields["filter_type"].(string); ok {
		a.FilterType = v
	}
	a.ModifiedBy = actor
	return nil
}

func (f *fakeStores) GetRecord(ctx context.Context, id int) (*models.FilterChangeRecord, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return r, nil
}

func (f *fakeStores) GetRecords(ctx context.Context, window *models.DateWindow) ([]*models.FilterChangeRecord, error) {
	out := make([]*models.FilterChangeRecord, 0, len(f.records))
	for i := 1; i <= len(f.records); i++ {
		if r, ok := f.records[i]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStores) MarkSynced(ctx context.Context, id int, actor string, at time.Time) error {
	r, ok := f.records[id]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	if r.SyncStatus == models.SyncStatusSynced {
		return utils.ErrorAlreadySynced
	}
	r.SyncStatus = models.SyncStatusSynced
	r.SyncedBy = actor
	r.SyncedAt = &at
	return nil
}

func (f *fakeStores) Append(ctx context.Context, entry *models.AuditEntry) error {
	if f.failAudit {
		return errors.New("audit store unavailable")
	}
	f.audits = append(f.audits, entry)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)
}

func newTestSynchronizer(f *fakeStores) *Synchronizer {
	s := NewSynchronizer(f, f, f)
	s.Now = fixedNow
	return s
}

func seedAssetAndRecord(f *fakeStores) {
	f.assets[1] = &models.Asset{
		ID:       1,
		Barcode:  "WO-100",
		Wing:     "North",
		Room:     "101",
		RoomName: "Staff Kitchen",
	}
	f.records[1] = &models.FilterChangeRecord{
		ID:                1,
		Barcode:           "WO-100",
		Location:          "Staff Kitchen",
		InstalledDateText: "30/11/2024",
		FilterType:        "Carbon 10in",
		SyncStatus:        models.SyncStatusPending,
	}
}

func TestReconcile_AppliesAllEffects(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	s := newTestSynchronizer(f)

	result, err := s.Reconcile(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	asset := f.assets[1]
	if asset.FilterInstalledOn == nil || asset.FilterInstalledOn.Format("2006-01-02") != "2024-11-30" {
		t.Fatalf("installed on not applied: %v", asset.FilterInstalledOn)
	}
	// 30/11 + 3 months rolls over to 1 March.
	if asset.FilterExpiry == nil || asset.FilterExpiry.Format("2006-01-02") != "2025-03-01" {
		t.Fatalf("expiry not applied: %v", asset.FilterExpiry)
	}
	if asset.FiltersOn == nil || !*asset.FiltersOn {
		t.Fatal("filters_on should be true")
	}
	if asset.FilterNeeded == nil || !*asset.FilterNeeded {
		t.Fatal("filter_needed should be true")
	}
	if asset.FilterType != "Carbon 10in" {
		t.Fatalf("filter type: got %q", asset.FilterType)
	}
	if asset.ReasonForChange != models.ReasonNotSpecified.String() {
		t.Fatalf("reason should default, got %q", asset.ReasonForChange)
	}

	record := f.records[1]
	if record.SyncStatus != models.SyncStatusSynced {
		t.Fatalf("record status: got %s", record.SyncStatus)
	}
	if record.SyncedAt == nil || !record.SyncedAt.Equal(fixedNow()) {
		t.Fatalf("synced at: got %v", record.SyncedAt)
	}

	if len(f.audits) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(f.audits))
	}
	if !result.AuditSent {
		t.Fatal("result should report audit sent")
	}

	// The synthetic status line rides along with the field diff.
	foundStatus := false
	for _, ch := range f.audits[0].Changes() {
		if ch.Field == "reconciliationStatus" {
			foundStatus = true
			if ch.OldValue == nil || *ch.OldValue != "Not synced" {
				t.Fatalf("status old value: %v", ch.OldValue)
			}
		}
	}
	if !foundStatus {
		t.Fatal("audit entry is missing the reconciliationStatus line")
	}
}

func TestReconcile_KeepsExistingFilterTypeWhenSourceOmitsIt(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	f.assets[1].FilterType = "Sediment 5in"
	f.records[1].FilterType = ""
	s := newTestSynchronizer(f)

	if _, err := s.Reconcile(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.assets[1].FilterType != "Sediment 5in" {
		t.Fatalf("filter type must never be cleared, got %q", f.assets[1].FilterType)
	}
}

func TestReconcile_SecondCallIsRejectedNotReapplied(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	s := newTestSynchronizer(f)

	if _, err := s.Reconcile(context.Background(), 1); err != nil {
		t.Fatalf("first call: %v", err)
	}
	updatesAfterFirst := f.updateCalls

	_, err := s.Reconcile(context.Background(), 1)
	if !errors.Is(err, utils.ErrorAlreadySynced) {
		t.Fatalf("second call should reject as already synced, got %v", err)
	}
	if f.updateCalls != updatesAfterFirst {
		t.Fatal("asset must not be double-mutated")
	}
	if len(f.audits) != 1 {
		t.Fatalf("no second audit entry expected, got %d", len(f.audits))
	}
}

func TestReconcile_RejectsUnmatchedRecord(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	f.records[1].Barcode = "WO-999"
	f.records[1].Location = "Boiler House"
	s := newTestSynchronizer(f)

	_, err := s.Reconcile(context.Background(), 1)
	if !errors.Is(err, utils.ErrorNoMatchedAsset) {
		t.Fatalf("got %v", err)
	}
	if f.updateCalls != 0 {
		t.Fatal("nothing should be written for an unmatched record")
	}
}

func TestReconcile_RejectsBadDateWithoutWriting(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	f.records[1].InstalledDateText = "2024-11-30"
	s := newTestSynchronizer(f)

	_, err := s.Reconcile(context.Background(), 1)
	if err == nil || !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if f.updateCalls != 0 {
		t.Fatal("nothing should be written for a bad date")
	}
}

func TestReconcile_AuditFailureDoesNotFailTheReconcile(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	f.failAudit = true
	s := newTestSynchronizer(f)

	result, err := s.Reconcile(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AuditSent {
		t.Fatal("result should report the missing audit entry")
	}
	if f.records[1].SyncStatus != models.SyncStatusSynced {
		t.Fatal("record should still be synced")
	}
}

func TestReconcileMany_IsolatesFailuresPerItem(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	f.assets[2] = &models.Asset{ID: 2, Barcode: "WO-200", RoomName: "Ward 2 Sluice"}
	f.records[2] = &models.FilterChangeRecord{
		ID:                2,
		Barcode:           "WO-200",
		Location:          "Ward 2 Sluice",
		InstalledDateText: "not a date",
		SyncStatus:        models.SyncStatusPending,
	}
	f.records[3] = &models.FilterChangeRecord{
		ID:                3,
		Barcode:           "WO-999",
		Location:          "Boiler House",
		InstalledDateText: "15/01/2024",
		SyncStatus:        models.SyncStatusPending,
	}
	s := newTestSynchronizer(f)

	report, err := s.ReconcileMany(context.Background(), []int{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("bulk call itself must not fail: %v", err)
	}

	if report.Requested != 4 {
		t.Fatalf("requested: got %d", report.Requested)
	}
	if len(report.Succeeded) != 1 || report.Succeeded[0].RecordId != 1 {
		t.Fatalf("succeeded: got %+v", report.Succeeded)
	}
	if len(report.Failed) != 3 {
		t.Fatalf("failed: got %+v", report.Failed)
	}
	if f.records[1].SyncStatus != models.SyncStatusSynced {
		t.Fatal("record 1 should be synced despite sibling failures")
	}
	if f.records[2].SyncStatus != models.SyncStatusPending {
		t.Fatal("record 2 must stay pending")
	}
}

func TestReconcileMany_DeadlineKeepsCompletedWork(t *testing.T) {
	f := newFakeStores()
	seedAssetAndRecord(f)
	s := newTestSynchronizer(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.ReconcileMany(ctx, []int{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Deadline {
		t.Fatal("report should flag the hit deadline")
	}
	if len(report.Succeeded) != 0 || len(report.Failed) != 0 {
		t.Fatalf("untouched items must not be listed, got %+v", report)
	}
}
