package importer

import "strings"

// Field keys used internally after header mapping.
const (
	fieldBarcode         = "barcode"
	fieldWing            = "wing"
	fieldRoom            = "room"
	fieldFloor           = "floor"
	fieldRoomName        = "room_name"
	fieldAssetType       = "asset_type"
	fieldStatus          = "status"
	fieldFilterNeeded    = "filter_needed"
	fieldFiltersOn       = "filters_on"
	fieldInstalledOn     = "filter_installed_on"
	fieldFilterExpiry    = "filter_expiry"
	fieldFilterType      = "filter_type"
	fieldReasonForChange = "reason_for_change"
	fieldNotes           = "notes"
)

// headerAliases maps each field to the header spellings seen across
// the spreadsheets sites actually send. Order matters: earlier aliases
// win when a sheet carries more than one candidate column.
var headerAliases = []struct {
	field   string
	aliases []string
}{
	{fieldBarcode, []string{"barcode", "bar code", "asset barcode", "barcode number", "asset id", "tag"}},
	{fieldWing, []string{"wing", "building wing", "block"}},
	{fieldRoom, []string{"room", "room number", "room no"}},
	{fieldFloor, []string{"floor", "level"}},
	{fieldRoomName, []string{"room name", "location", "location name", "description of location"}},
	{fieldAssetType, []string{"asset type", "type", "outlet type"}},
	{fieldStatus, []string{"status", "asset status"}},
	{fieldFilterNeeded, []string{"filter needed", "filter required", "needs filter"}},
	{fieldFiltersOn, []string{"filters on", "filter on", "filter fitted", "filter installed"}},
	{fieldInstalledOn, []string{"filter installed on", "installed on", "date installed", "installation date", "filter date"}},
	{fieldFilterExpiry, []string{"filter expiry", "expiry", "expiry date", "filter expiry date"}},
	{fieldFilterType, []string{"filter type", "type of filter"}},
	{fieldReasonForChange, []string{"reason for change", "reason", "change reason"}},
	{fieldNotes, []string{"notes", "comments", "remarks"}},
}

func normalizeHeader(cell string) string {
	h := strings.ToLower(strings.TrimSpace(cell))
	h = strings.ReplaceAll(h, "_", " ")
	h = strings.ReplaceAll(h, "-", " ")
	return strings.Join(strings.Fields(h), " ")
}

// mapHeader resolves each header cell to a field key. Unknown columns
// are ignored rather than rejected, so sites can keep their own extra
// columns in the sheet.
func mapHeader(header []string) map[string]int {
	columns := make(map[string]int)
	for idx, cell := range header {
		h := normalizeHeader(cell)
		if h == "" {
			continue
		}
		for _, entry := range headerAliases {
			if _, taken := columns[entry.field]; taken {
				continue
			}
			for _, alias := range entry.aliases {
				if h == alias {
					columns[entry.field] = idx
					break
				}
			}
		}
	}
	return columns
}
