package recon

import (
	"strings"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
)

// AssetIndex is an in-memory snapshot of the asset register used to
// resolve a batch of change records without per-record queries.
type AssetIndex struct {
	byBarcode map[string]*models.Asset
	all       []*models.Asset
}

func NewAssetIndex(assets []*models.Asset) *AssetIndex {
	idx := &AssetIndex{
		byBarcode: make(map[string]*models.Asset, len(assets)),
		all:       assets,
	}
	for _, a := range assets {
		idx.byBarcode[a.Barcode] = a
	}
	return idx
}

func (idx *AssetIndex) Lookup(barcode string) *models.Asset {
	return idx.byBarcode[barcode]
}

func (idx *AssetIndex) All() []*models.Asset {
	return idx.all
}

// locationMatches runs the symmetric substring test between the
// record's location text and the asset's wing, room and room name.
// Either direction of containment counts. The test is known to be
// loose on short location codes; it reflects how the register has
// always been matched and changing it would reclassify history.
func locationMatches(asset *models.Asset, location string) bool {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return false
	}
	for _, field := range []string{asset.Wing, asset.Room, asset.RoomName} {
		f := strings.ToLower(strings.TrimSpace(field))
		if f == "" {
			continue
		}
		if strings.Contains(f, loc) || strings.Contains(loc, f) {
			return true
		}
	}
	return false
}

// Match resolves one change record against the index. Barcode takes
// precedence: an exact, case-sensitive hit wins before any location
// scan. locationMatch is recomputed for the chosen asset either way,
// so a barcode hit sitting in the wrong room is visible to the
// classifier. No match is a valid terminal state, not an error.
func Match(record *models.FilterChangeRecord, idx *AssetIndex) (asset *models.Asset, barcodeMatch bool, locationMatch bool) {
	if record.Barcode != "" {
		if hit, ok := idx.byBarcode[record.Barcode]; ok {
			asset = hit
			barcodeMatch = true
		}
	}

	if asset == nil {
		for _, a := range idx.all {
			if locationMatches(a, record.Location) {
				asset = a
				break
			}
		}
	}

	if asset != nil {
		locationMatch = locationMatches(asset, record.Location)
	}
	return asset, barcodeMatch, locationMatch
}

// BuildItems projects records onto the index, producing the derived
// reconciliation view the UI lists.
func BuildItems(records []*models.FilterChangeRecord, idx *AssetIndex) []*ReconciliationItem {
	items := make([]*ReconciliationItem, 0, len(records))
	for _, r := range records {
		asset, barcodeMatch, locationMatch := Match(r, idx)
		items = append(items, &ReconciliationItem{
			Record:        r,
			Asset:         asset,
			BarcodeMatch:  barcodeMatch,
			LocationMatch: locationMatch,
			Status:        Classify(asset, barcodeMatch, locationMatch, r.SyncStatus),
		})
	}
	return items
}
