package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
)

// NOTE: These tests are intentionally DB-free. The importer's store
// hooks are replaced with in-memory fakes so the per-row semantics can
// be asserted without MySQL.

type fakeRegister struct {
	existing map[string]bool
	created  []*models.NewAsset
	catalog  map[models.CatalogKind]map[string]bool
}

func newFakeRegister() *fakeRegister {
	return &fakeRegister{
		existing: map[string]bool{},
		catalog:  map[models.CatalogKind]map[string]bool{},
	}
}

func (f *fakeRegister) existingBarcodes(ctx context.Context, barcodes []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, b := range barcodes {
		if f.existing[b] {
			out[b] = true
		}
	}
	return out, nil
}

func (f *fakeRegister) createAsset(ctx context.Context, input *models.NewAsset) (*models.Asset, error) {
	f.created = append(f.created, input)
	f.existing[input.Barcode] = true
	return &models.Asset{ID: len(f.created), Barcode: input.Barcode}, nil
}

func (f *fakeRegister) ensureCatalog(ctx context.Context, kind models.CatalogKind, label string) (bool, error) {
	if f.catalog[kind] == nil {
		f.catalog[kind] = map[string]bool{}
	}
	key := strings.ToLower(label)
	if f.catalog[kind][key] {
		return false, nil
	}
	f.catalog[kind][key] = true
	return true, nil
}

func (f *fakeRegister) fetchCatalog(ctx context.Context, kind models.CatalogKind) ([]string, error) {
	return nil, nil
}

func newTestImporter(f *fakeRegister) *Importer {
	cache := models.NewCatalogCache(time.Hour)
	cache.SetStoreHooks(f.fetchCatalog, f.ensureCatalog)

	im := NewImporter(cache)
	im.existingBarcodes = f.existingBarcodes
	im.createAsset = f.createAsset
	return im
}

func sheetHeader() []string {
	return []string{"Barcode", "Wing", "Room", "Room Name", "Asset Type", "Filter Type", "Filter Needed", "Filters On", "Filter Installed On"}
}

func TestImportBatch_OneBadDateFailsOnlyThatRow(t *testing.T) {
	f := newFakeRegister()
	im := newTestImporter(f)

	table := &Table{
		Header: sheetHeader(),
		Rows: [][]string{
			{"WO-001", "North", "101", "Staff Kitchen", "Sink", "Carbon 10in", "YES", "", "15/01/2024"},
			{"WO-002", "North", "102", "Treatment Room", "Sink", "", "", "", "16/01/2024"},
			{"WO-003", "South", "201", "Ward Kitchen", "Fountain", "", "", "", "2024-01-17"},
			{"WO-004", "South", "202", "Sluice", "Sink", "", "", "", ""},
		},
	}

	report, err := im.ImportBatch(context.Background(), table)
	if err != nil {
		t.Fatalf("batch call must not fail: %v", err)
	}

	if report.Total != 4 || report.Uploaded != 3 || report.Failed != 1 {
		t.Fatalf("got total=%d uploaded=%d failed=%d", report.Total, report.Uploaded, report.Failed)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", report.Errors)
	}
	// Data row 3 is sheet row 4 (the header is row 1).
	if !strings.HasPrefix(report.Errors[0], "Row 4:") {
		t.Fatalf("error should name sheet row 4, got %q", report.Errors[0])
	}
}

func TestImportBatch_InBatchDuplicateIsSkippedNotErrored(t *testing.T) {
	f := newFakeRegister()
	im := newTestImporter(f)

	table := &Table{
		Header: sheetHeader(),
		Rows: [][]string{
			{"WO-001", "North", "101", "Staff Kitchen", "", "", "", "", ""},
			{"wo-001", "North", "101", "Staff Kitchen", "", "", "", "", ""},
		},
	}

	report, err := im.ImportBatch(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Uploaded != 1 {
		t.Fatalf("first occurrence should import, got %d", report.Uploaded)
	}
	if report.Failed != 0 {
		t.Fatalf("an in-batch duplicate is a skip, not an error: %+v", report.Errors)
	}
	if len(report.SkippedDuplicates) != 1 || report.SkippedDuplicates[0] != "WO-001" {
		t.Fatalf("got skipped %v", report.SkippedDuplicates)
	}
}

func TestImportBatch_StoreDuplicateIsAnError(t *testing.T) {
	f := newFakeRegister()
	f.existing["WO-001"] = true
	im := newTestImporter(f)

	table := &Table{
		Header: sheetHeader(),
		Rows: [][]string{
			{"wo-001", "North", "101", "Staff Kitchen", "", "", "", "", ""},
		},
	}

	report, err := im.ImportBatch(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 || report.Uploaded != 0 {
		t.Fatalf("got uploaded=%d failed=%d", report.Uploaded, report.Failed)
	}
	if len(report.ExistingBarcodes) != 1 || report.ExistingBarcodes[0] != "WO-001" {
		t.Fatalf("got existing %v", report.ExistingBarcodes)
	}
	if len(report.SkippedDuplicates) != 0 {
		t.Fatal("a store duplicate must not be reported as an in-batch skip")
	}
}

func TestImportBatch_MissingBarcodeFailsTheRowOnly(t *testing.T) {
	f := newFakeRegister()
	im := newTestImporter(f)

	table := &Table{
		Header: sheetHeader(),
		Rows: [][]string{
			{"", "North", "101", "Staff Kitchen", "", "", "", "", ""},
			{"WO-002", "North", "102", "Treatment Room", "", "", "", "", ""},
		},
	}

	report, err := im.ImportBatch(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Uploaded != 1 || report.Failed != 1 {
		t.Fatalf("got uploaded=%d failed=%d", report.Uploaded, report.Failed)
	}
}

func TestImportBatch_BooleanConflictIsFlaggedNotCorrected(t *testing.T) {
	f := newFakeRegister()
	im := newTestImporter(f)

	table := &Table{
		Header: sheetHeader(),
		Rows: [][]string{
			{"WO-001", "North", "101", "Staff Kitchen", "", "", "YES", "TRUE", ""},
		},
	}

	report, err := im.ImportBatch(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Uploaded != 1 {
		t.Fatalf("the row still imports, got %d uploaded", report.Uploaded)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected a mismatch warning, got %v", report.Warnings)
	}
	// Both values land as parsed, no inference between them.
	created := f.created[0]
	if created.FilterNeeded == nil || !*created.FilterNeeded {
		t.Fatal("filter_needed should be true as stated")
	}
	if created.FiltersOn == nil || !*created.FiltersOn {
		t.Fatal("filters_on should be true as stated")
	}
}

func TestImportBatch_NewCatalogLabelsAreReportedOnce(t *testing.T) {
	f := newFakeRegister()
	im := newTestImporter(f)

	table := &Table{
		Header: sheetHeader(),
		Rows: [][]string{
			{"WO-001", "", "", "", "Fountain", "Carbon 10in", "", "", ""},
			{"WO-002", "", "", "", "Fountain", "Carbon 10in", "", "", ""},
		},
	}

	report, err := im.ImportBatch(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.NewAssetTypes) != 1 || report.NewAssetTypes[0] != "Fountain" {
		t.Fatalf("got new asset types %v", report.NewAssetTypes)
	}
	if len(report.NewFilterTypes) != 1 || report.NewFilterTypes[0] != "Carbon 10in" {
		t.Fatalf("got new filter types %v", report.NewFilterTypes)
	}
}

func TestImportBatch_SerialDateCellIsAccepted(t *testing.T) {
	f := newFakeRegister()
	im := newTestImporter(f)

	table := &Table{
		Header: sheetHeader(),
		Rows: [][]string{
			// Serial 45292 is 2024-01-01.
			{"WO-001", "", "", "", "", "", "", "", "45292"},
		},
	}

	report, err := im.ImportBatch(context.Background(), table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Uploaded != 1 {
		t.Fatalf("serial date row should import, got %+v", report.Errors)
	}
	installed := f.created[0].FilterInstalledOn
	if installed == nil || installed.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("got installed %v", installed)
	}
}

func TestParseTable_CSV(t *testing.T) {
	data := []byte("Barcode,Wing\nWO-001,North\nWO-002,South\n")
	table, err := ParseTable(data, FormatCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Header) != 2 || table.Header[0] != "Barcode" {
		t.Fatalf("got header %v", table.Header)
	}
	if len(table.Rows) != 2 || table.Rows[1][1] != "South" {
		t.Fatalf("got rows %v", table.Rows)
	}
}

func TestFormatForFilename(t *testing.T) {
	if _, err := FormatForFilename("assets.xls"); err == nil {
		t.Fatal("xls must be rejected")
	}
	if f, _ := FormatForFilename("Assets.XLSX"); f != FormatXLSX {
		t.Fatalf("got %v", f)
	}
	if f, _ := FormatForFilename("assets.csv"); f != FormatCSV {
		t.Fatalf("got %v", f)
	}
}

func TestMapHeader_AliasesAndUnknownColumns(t *testing.T) {
	columns := mapHeader([]string{"Asset Barcode", "LOCATION", "Some Site Column", "date installed"})
	if columns[fieldBarcode] != 0 {
		t.Fatalf("barcode alias not resolved: %v", columns)
	}
	if columns[fieldRoomName] != 1 {
		t.Fatalf("location alias not resolved: %v", columns)
	}
	if columns[fieldInstalledOn] != 3 {
		t.Fatalf("installed alias not resolved: %v", columns)
	}
	if _, ok := columns["some site column"]; ok {
		t.Fatal("unknown columns must be ignored")
	}
}
