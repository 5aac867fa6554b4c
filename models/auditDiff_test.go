package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

func TestDiffEntities_IdenticalEntitiesProduceNoChanges(t *testing.T) {
	asset := &Asset{
		ID:        7,
		Barcode:   "WO-700",
		Status:    AssetStatusActive,
		Wing:      "East",
		FiltersOn: utils.NewTrue(),
	}
	if changes := DiffEntities(asset, asset, AuditExclusions()...); len(changes) != 0 {
		t.Fatalf("diff(X, X) should be empty, got %+v", changes)
	}
}

func TestDiffEntities_EmptyNeverEqualsNonEmpty(t *testing.T) {
	before := &Asset{Barcode: "WO-700"}
	after := &Asset{Barcode: "WO-700", FilterType: "Carbon 10in"}

	changes := DiffEntities(before, after, AuditExclusions()...)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	if changes[0].Field != "FilterType" {
		t.Fatalf("got field %s", changes[0].Field)
	}
	if changes[0].OldValue != nil {
		t.Fatal("old value should be nil for an empty origin")
	}
	if changes[0].NewValue == nil || *changes[0].NewValue != "Carbon 10in" {
		t.Fatalf("got new value %v", changes[0].NewValue)
	}
}

type reportRow struct {
	Name         string
	FilterNeeded string
}

func TestDiffEntities_BooleanIdentityAcrossRepresentations(t *testing.T) {
	// "true", "1" and a real boolean all collapse to the same value.
	a := &reportRow{Name: "x", FilterNeeded: "true"}
	b := &reportRow{Name: "x", FilterNeeded: "1"}
	if changes := DiffEntities(a, b); len(changes) != 0 {
		t.Fatalf("true and 1 should compare equal, got %+v", changes)
	}

	c := &reportRow{Name: "x", FilterNeeded: "false"}
	if changes := DiffEntities(a, c); len(changes) != 1 {
		t.Fatalf("true and false should differ, got %+v", changes)
	}

	before := &Asset{Barcode: "WO-700", FilterNeeded: utils.NewTrue()}
	after := &Asset{Barcode: "WO-700", FilterNeeded: utils.NewTrue()}
	if changes := DiffEntities(before, after, AuditExclusions()...); len(changes) != 0 {
		t.Fatalf("equal boolean pointers should not diff, got %+v", changes)
	}
}

type visitNote struct {
	Site    string
	SeenAt  string
	Comment string
}

func TestDiffEntities_DatesCompareAtDayGranularity(t *testing.T) {
	a := &visitNote{Site: "North", SeenAt: "2024-06-01"}
	b := &visitNote{Site: "North", SeenAt: "2024-06-01 14:30:00"}
	if changes := DiffEntities(a, b); len(changes) != 0 {
		t.Fatalf("same day should compare equal, got %+v", changes)
	}

	c := &visitNote{Site: "North", SeenAt: "2024-06-02"}
	if changes := DiffEntities(a, c); len(changes) != 1 {
		t.Fatalf("different days should differ, got %+v", changes)
	}
}

func TestDiffEntities_TimeFieldsFlattenToStorageDates(t *testing.T) {
	installed := time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC)
	before := &Asset{Barcode: "WO-700"}
	after := &Asset{Barcode: "WO-700", FilterInstalledOn: &installed}

	changes := DiffEntities(before, after, AuditExclusions()...)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	if *changes[0].NewValue != "2024-06-01" {
		t.Fatalf("time should flatten to storage date, got %q", *changes[0].NewValue)
	}
}

func TestNewAuditEntryForCreate_ListsEveryNonEmptyField(t *testing.T) {
	asset := &Asset{
		ID:        3,
		Barcode:   "WO-300",
		Status:    AssetStatusActive,
		Wing:      "West",
		CreatedBy: "importer",
	}
	entry := NewAuditEntryForCreate(asset.ID, "importer", asset, AuditExclusions()...)
	if entry.Action != AuditActionCreate {
		t.Fatalf("got action %s", entry.Action)
	}

	changes := entry.Changes()
	wantFields := map[string]bool{"Barcode": true, "Status": true, "Wing": true}
	if len(changes) != len(wantFields) {
		t.Fatalf("expected %d changes, got %+v", len(wantFields), changes)
	}
	for _, ch := range changes {
		if !wantFields[ch.Field] {
			t.Errorf("unexpected field %s in create diff", ch.Field)
		}
		if ch.OldValue != nil {
			t.Errorf("field %s: create diff must have nil old value", ch.Field)
		}
		if ch.NewValue == nil {
			t.Errorf("field %s: create diff must carry the value", ch.Field)
		}
	}
}

func TestNewAuditEntryForDelete_ListsEveryNonEmptyField(t *testing.T) {
	asset := &Asset{ID: 4, Barcode: "WO-400", RoomName: "Plant Room"}
	entry := NewAuditEntryForDelete(asset.ID, "admin", asset, AuditExclusions()...)

	for _, ch := range entry.Changes() {
		if ch.NewValue != nil {
			t.Errorf("field %s: delete diff must have nil new value", ch.Field)
		}
		if ch.OldValue == nil {
			t.Errorf("field %s: delete diff must carry the old value", ch.Field)
		}
	}
}
