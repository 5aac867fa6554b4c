package recon

import (
	"testing"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
)

func testIndex() *AssetIndex {
	return NewAssetIndex([]*models.Asset{
		{ID: 1, Barcode: "WO-100", Wing: "North", Room: "101", RoomName: "Staff Kitchen"},
		{ID: 2, Barcode: "WO-200", Wing: "South", Room: "205", RoomName: "Ward 2 Sluice"},
	})
}

func TestMatch_ExactBarcodeWins(t *testing.T) {
	record := &models.FilterChangeRecord{Barcode: "WO-200", Location: "Staff Kitchen"}
	asset, barcodeMatch, locationMatch := Match(record, testIndex())
	if asset == nil || asset.ID != 2 {
		t.Fatalf("expected asset 2, got %+v", asset)
	}
	if !barcodeMatch {
		t.Fatal("barcodeMatch should be true")
	}
	// The location points at the other asset; the flag must say so.
	if locationMatch {
		t.Fatal("locationMatch should be false for a mislocated barcode hit")
	}
}

func TestMatch_BarcodeIsCaseSensitive(t *testing.T) {
	record := &models.FilterChangeRecord{Barcode: "wo-100", Location: ""}
	asset, barcodeMatch, _ := Match(record, testIndex())
	if barcodeMatch {
		t.Fatal("lower-cased barcode must not match exactly")
	}
	if asset != nil {
		t.Fatalf("no location text, expected no match, got asset %d", asset.ID)
	}
}

func TestMatch_LocationFallback(t *testing.T) {
	record := &models.FilterChangeRecord{Location: "staff kitchen"}
	asset, barcodeMatch, locationMatch := Match(record, testIndex())
	if asset == nil || asset.ID != 1 {
		t.Fatalf("expected asset 1, got %+v", asset)
	}
	if barcodeMatch {
		t.Fatal("barcodeMatch should be false for a location-only match")
	}
	if !locationMatch {
		t.Fatal("locationMatch should be true")
	}
}

func TestMatch_LocationTestIsBidirectional(t *testing.T) {
	// The record text contains the asset's room name, not the other
	// way round. Both containment directions count.
	record := &models.FilterChangeRecord{Location: "Ward 2 Sluice, rear sink"}
	asset, _, locationMatch := Match(record, testIndex())
	if asset == nil || asset.ID != 2 {
		t.Fatalf("expected asset 2, got %+v", asset)
	}
	if !locationMatch {
		t.Fatal("locationMatch should be true")
	}
}

// The substring heuristic is known-loose: a short room number matches
// any location text containing those digits. This pins the behavior
// rather than endorsing it.
func TestMatch_ShortRoomCodeIsLoose(t *testing.T) {
	record := &models.FilterChangeRecord{Location: "Bed 101, anywhere"}
	asset, _, _ := Match(record, testIndex())
	if asset == nil || asset.ID != 1 {
		t.Fatalf("expected the loose room-code match to pick asset 1, got %+v", asset)
	}
}

func TestMatch_NoMatchIsTerminal(t *testing.T) {
	record := &models.FilterChangeRecord{Barcode: "WO-999", Location: "Boiler House"}
	asset, barcodeMatch, locationMatch := Match(record, testIndex())
	if asset != nil || barcodeMatch || locationMatch {
		t.Fatalf("expected nothing, got asset=%v barcode=%v location=%v", asset, barcodeMatch, locationMatch)
	}
}

func TestBuildItems_ProjectsStatuses(t *testing.T) {
	records := []*models.FilterChangeRecord{
		{ID: 1, Barcode: "WO-100", Location: "Staff Kitchen", SyncStatus: models.SyncStatusPending},
		{ID: 2, Barcode: "WO-999", Location: "Boiler House", SyncStatus: models.SyncStatusPending},
		{ID: 3, Barcode: "WO-200", Location: "Staff Kitchen", SyncStatus: models.SyncStatusPending},
		{ID: 4, Barcode: "", Location: "nowhere at all", SyncStatus: models.SyncStatusSynced},
	}

	items := BuildItems(records, testIndex())
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	want := []ReconStatus{ReconStatusConfirmed, ReconStatusNotFound, ReconStatusMismatch, ReconStatusConfirmed}
	for i, item := range items {
		if item.Status != want[i] {
			t.Errorf("item %d: got %s, want %s", i, item.Status, want[i])
		}
	}
}
