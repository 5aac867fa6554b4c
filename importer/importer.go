package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"github.com/sirupsen/logrus"
)

// maxReportErrors caps the error list so a thousand-row disaster does
// not balloon the response.
const maxReportErrors = 20

type ImportReport struct {
	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`

	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`

	NewAssetTypes  []string `json:"new_asset_types,omitempty"`
	NewFilterTypes []string `json:"new_filter_types,omitempty"`

	// SkippedDuplicates are barcodes repeated within the upload; the
	// first occurrence was imported. ExistingBarcodes clashed with
	// assets already in the register and count as failures.
	SkippedDuplicates []string `json:"skipped_duplicates,omitempty"`
	ExistingBarcodes  []string `json:"existing_barcodes,omitempty"`
}

func (r *ImportReport) addError(row int, format string, args ...interface{}) {
	r.Failed++
	if len(r.Errors) < maxReportErrors {
		msg := fmt.Sprintf(format, args...)
		r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %s", row, msg))
	}
}

type Importer struct {
	Catalog *models.CatalogCache
	logger  *logrus.Logger

	// store hooks, swappable in tests
	existingBarcodes func(ctx context.Context, barcodes []string) (map[string]bool, error)
	createAsset      func(ctx context.Context, input *models.NewAsset) (*models.Asset, error)
}

func NewImporter(catalog *models.CatalogCache) *Importer {
	return &Importer{
		Catalog:          catalog,
		logger:           config.GetLogger(),
		existingBarcodes: models.ExistingBarcodes,
		createAsset:      models.CreateAsset,
	}
}

// ImportBatch loads a parsed table into the asset register. Rows are
// processed independently: one bad row costs one failure, never the
// batch. Row numbers in messages are sheet rows (header is row 1).
func (im *Importer) ImportBatch(ctx context.Context, table *Table) (*ImportReport, error) {
	columns := mapHeader(table.Header)
	if _, ok := columns[fieldBarcode]; !ok {
		return nil, errors.New("no barcode column found in header")
	}

	report := &ImportReport{Total: len(table.Rows)}

	// One query up front instead of a per-row existence probe.
	barcodes := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if b := utils.NormalizeBarcode(cell(row, columns, fieldBarcode)); b != "" {
			barcodes = append(barcodes, b)
		}
	}
	existing, err := im.existingBarcodes(ctx, utils.UniqueSlice(barcodes))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(table.Rows))
	for dataIdx, row := range table.Rows {
		rowNum := dataIdx + 2

		barcode := utils.NormalizeBarcode(cell(row, columns, fieldBarcode))
		if barcode == "" {
			report.addError(rowNum, "barcode is required")
			continue
		}
		if seen[barcode] {
			// Repeat within the same upload; not an error.
			report.SkippedDuplicates = append(report.SkippedDuplicates, barcode)
			continue
		}
		seen[barcode] = true

		if existing[barcode] {
			report.ExistingBarcodes = append(report.ExistingBarcodes, barcode)
			report.addError(rowNum, "barcode %s already exists", barcode)
			continue
		}

		installedOn, err := parseDateCell(cell(row, columns, fieldInstalledOn))
		if err != nil {
			report.addError(rowNum, "filter installed on: %v", err)
			continue
		}
		expiry, err := parseDateCell(cell(row, columns, fieldFilterExpiry))
		if err != nil {
			report.addError(rowNum, "filter expiry: %v", err)
			continue
		}

		filterNeeded := utils.ParseLooseBool(cell(row, columns, fieldFilterNeeded))
		filtersOn := utils.ParseLooseBool(cell(row, columns, fieldFiltersOn))
		if filtersOn && filterNeeded {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Row %d: filters on and filter needed are both set for %s", rowNum, barcode))
		}

		assetType := cell(row, columns, fieldAssetType)
		if assetType != "" {
			created, err := im.Catalog.Ensure(ctx, models.CatalogKindAssetType, assetType)
			if err != nil {
				report.addError(rowNum, "asset type %q: %v", assetType, err)
				continue
			}
			if created {
				report.NewAssetTypes = append(report.NewAssetTypes, assetType)
			}
		}

		filterType := cell(row, columns, fieldFilterType)
		if filterType != "" {
			created, err := im.Catalog.Ensure(ctx, models.CatalogKindFilterType, filterType)
			if err != nil {
				report.addError(rowNum, "filter type %q: %v", filterType, err)
				continue
			}
			if created {
				report.NewFilterTypes = append(report.NewFilterTypes, filterType)
			}
		}

		input := &models.NewAsset{
			Barcode:           barcode,
			Status:            models.AssetStatus(cell(row, columns, fieldStatus)),
			Wing:              cell(row, columns, fieldWing),
			Room:              cell(row, columns, fieldRoom),
			Floor:             cell(row, columns, fieldFloor),
			RoomName:          cell(row, columns, fieldRoomName),
			AssetType:         assetType,
			FilterNeeded:      &filterNeeded,
			FiltersOn:         &filtersOn,
			FilterInstalledOn: installedOn,
			FilterExpiry:      expiry,
			FilterType:        filterType,
			ReasonForChange:   cell(row, columns, fieldReasonForChange),
			Notes:             cell(row, columns, fieldNotes),
		}

		if _, err := im.createAsset(ctx, input); err != nil {
			if errors.Is(err, utils.ErrorDuplicateBarcode) {
				// A concurrent writer beat the up-front scan.
				report.ExistingBarcodes = append(report.ExistingBarcodes, barcode)
			} else if !utils.IsValidationError(err) {
				config.LogError(im.logger, "importer", "ImportBatch", "create asset", barcode, err)
			}
			report.addError(rowNum, "%v", err)
			continue
		}
		report.Uploaded++
	}

	report.NewAssetTypes = utils.UniqueSlice(report.NewAssetTypes)
	report.NewFilterTypes = utils.UniqueSlice(report.NewFilterTypes)
	return report, nil
}

// parseDateCell accepts the register's textual date format or a raw
// spreadsheet serial number. Empty means absent.
func parseDateCell(text string) (*time.Time, error) {
	if text == "" {
		return nil, nil
	}
	if t, err := utils.ParseChangeDate(text); err == nil {
		return &t, nil
	} else if serial, convErr := strconv.ParseFloat(text, 64); convErr == nil {
		t, serialErr := utils.ParseExcelSerialDate(serial)
		if serialErr != nil {
			return nil, serialErr
		}
		return &t, nil
	} else {
		return nil, err
	}
}
