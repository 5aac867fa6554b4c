package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"gorm.io/gorm"
)

// Asset is the canonical record for one water outlet. Barcode is the
// unique business key; all barcodes are stored upper-case.
type Asset struct {
	ID       int         `gorm:"primary_key" json:"id"`
	Barcode  string      `gorm:"size:64;uniqueIndex;not null" json:"barcode" binding:"required"`
	Status   AssetStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	Wing     string      `gorm:"size:100" json:"wing"`
	Room     string      `gorm:"size:100" json:"room"`
	Floor    string      `gorm:"size:100" json:"floor"`
	RoomName string      `gorm:"size:255" json:"room_name"`

	AssetType string `gorm:"size:100" json:"asset_type"`

	FilterNeeded      *bool      `gorm:"default:false" json:"filter_needed"`
	FiltersOn         *bool      `gorm:"default:false" json:"filters_on"`
	FilterInstalledOn *time.Time `json:"filter_installed_on"`
	FilterExpiry      *time.Time `json:"filter_expiry"`
	FilterType        string     `gorm:"size:100" json:"filter_type"`
	ReasonForChange   string     `gorm:"size:100" json:"reason_for_change"`

	Notes string `gorm:"type:text" json:"notes"`

	CreatedBy  string    `gorm:"size:100" json:"created_by"`
	ModifiedBy string    `gorm:"size:100" json:"modified_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAsset struct {
	Barcode  string      `json:"barcode" binding:"required"`
	Status   AssetStatus `json:"status"`
	Wing     string      `json:"wing"`
	Room     string      `json:"room"`
	Floor    string      `json:"floor"`
	RoomName string      `json:"room_name"`

	AssetType string `json:"asset_type"`

	FilterNeeded      *bool      `json:"filter_needed"`
	FiltersOn         *bool      `json:"filters_on"`
	FilterInstalledOn *time.Time `json:"filter_installed_on"`
	FilterExpiry      *time.Time `json:"filter_expiry"`
	FilterType        string     `json:"filter_type"`
	ReasonForChange   string     `json:"reason_for_change"`

	Notes string `json:"notes"`
}

// auditExcludedFields are system-managed and never appear in diffs.
var auditExcludedFields = []string{"ID", "CreatedAt", "UpdatedAt", "CreatedBy", "ModifiedBy"}

// AuditExclusions lists the system-managed columns left out of diffs.
func AuditExclusions() []string {
	return auditExcludedFields
}

func (input *NewAsset) normalize() {
	input.Barcode = utils.NormalizeBarcode(input.Barcode)
	if input.Status == "" {
		input.Status = AssetStatusActive
	}
	if input.FilterNeeded == nil {
		input.FilterNeeded = utils.NewFalse()
	}
	if input.FiltersOn == nil {
		input.FiltersOn = utils.NewFalse()
	}
}

func (input *NewAsset) validate(ctx context.Context, id int) error {
	if !input.Status.IsValid() {
		return utils.NewValidationError("asset", "status", "%q is not a valid status", input.Status)
	}
	if err := utils.ValidateUnique[Asset](ctx, "barcode", input.Barcode, id); err != nil {
		return utils.ErrorDuplicateBarcode
	}
	return nil
}

func CreateAsset(ctx context.Context, input *NewAsset) (*Asset, error) {
	input.normalize()
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	actor := utils.ActorFromContext(ctx)
	asset := Asset{
		Barcode:           input.Barcode,
		Status:            input.Status,
		Wing:              input.Wing,
		Room:              input.Room,
		Floor:             input.Floor,
		RoomName:          input.RoomName,
		AssetType:         input.AssetType,
		FilterNeeded:      input.FilterNeeded,
		FiltersOn:         input.FiltersOn,
		FilterInstalledOn: input.FilterInstalledOn,
		FilterExpiry:      input.FilterExpiry,
		FilterType:        input.FilterType,
		ReasonForChange:   input.ReasonForChange,
		Notes:             input.Notes,
		CreatedBy:         actor,
		ModifiedBy:        actor,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&asset).Error; err != nil {
		// The unique index races the pre-check under concurrent creates.
		if utils.IsDuplicateKeyErr(err) {
			return nil, utils.ErrorDuplicateBarcode
		}
		return nil, err
	}

	entry := NewAuditEntryForCreate(asset.ID, actor, &asset, auditExcludedFields...)
	if err := AppendAuditEntry(ctx, entry); err != nil {
		config.LogError(config.GetLogger(), "asset.go", "CreateAsset", "appending audit entry", asset.ID, err)
	}

	return &asset, nil
}

func UpdateAsset(ctx context.Context, id int, input *NewAsset) (*Asset, error) {
	input.normalize()

	before, err := utils.FetchModel[Asset](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	actor := utils.ActorFromContext(ctx)
	db := config.GetDB()
	updates := map[string]interface{}{
		"barcode":             input.Barcode,
		"status":              input.Status,
		"wing":                input.Wing,
		"room":                input.Room,
		"floor":               input.Floor,
		"room_name":           input.RoomName,
		"asset_type":          input.AssetType,
		"filter_needed":       input.FilterNeeded,
		"filters_on":          input.FiltersOn,
		"filter_installed_on": input.FilterInstalledOn,
		"filter_expiry":       input.FilterExpiry,
		"filter_type":         input.FilterType,
		"reason_for_change":   input.ReasonForChange,
		"notes":               input.Notes,
		"modified_by":         actor,
	}
	if err := db.WithContext(ctx).Model(&Asset{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}

	after, err := utils.FetchModel[Asset](ctx, id)
	if err != nil {
		return nil, err
	}

	changes := DiffEntities(before, after, auditExcludedFields...)
	if len(changes) > 0 {
		entry := NewAuditEntry(id, AuditActionUpdate, actor, changes)
		if err := AppendAuditEntry(ctx, entry); err != nil {
			config.LogError(config.GetLogger(), "asset.go", "UpdateAsset", "appending audit entry", id, err)
		}
	}

	return after, nil
}

func DeleteAsset(ctx context.Context, id int) (*Asset, error) {
	asset, err := utils.FetchModel[Asset](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&asset).Error; err != nil {
		return nil, err
	}

	actor := utils.ActorFromContext(ctx)
	entry := NewAuditEntryForDelete(id, actor, asset, auditExcludedFields...)
	if err := AppendAuditEntry(ctx, entry); err != nil {
		config.LogError(config.GetLogger(), "asset.go", "DeleteAsset", "appending audit entry", id, err)
	}

	return asset, nil
}

func GetAsset(ctx context.Context, id int) (*Asset, error) {
	return utils.FetchModel[Asset](ctx, id)
}

// GetAssetByBarcode is a case-exact lookup; callers normalize first
// when they want the stored (upper-case) form.
func GetAssetByBarcode(ctx context.Context, barcode string) (*Asset, error) {
	db := config.GetDB()
	var asset Asset
	err := db.WithContext(ctx).Where("barcode = ?", barcode).Take(&asset).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func GetAllAssets(ctx context.Context) ([]*Asset, error) {
	return utils.FetchAllModels[Asset](ctx)
}

// PaginateAssets scans the register in id order, one page at a time.
func PaginateAssets(ctx context.Context, limit int, after *string) ([]*Asset, *PageInfo, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	afterId, err := DecodeIdCursor(after)
	if err != nil {
		return nil, nil, err
	}

	db := config.GetDB()
	var assets []*Asset
	dbCtx := db.WithContext(ctx).Order("id")
	if afterId > 0 {
		dbCtx = dbCtx.Where("id > ?", afterId)
	}
	if err := dbCtx.Limit(limit + 1).Find(&assets).Error; err != nil {
		return nil, nil, err
	}

	pageInfo := &PageInfo{}
	if len(assets) > limit {
		assets = assets[:limit]
		pageInfo.HasNextPage = utils.NewTrue()
	} else {
		pageInfo.HasNextPage = utils.NewFalse()
	}
	if len(assets) > 0 {
		pageInfo.StartCursor = EncodeIdCursor(assets[0].ID)
		pageInfo.EndCursor = EncodeIdCursor(assets[len(assets)-1].ID)
	}

	return assets, pageInfo, nil
}

// ExistingBarcodes reports which of the given (already normalized)
// barcodes exist, case-insensitively. Used by the bulk importer to
// distinguish in-batch duplicates from prior state.
func ExistingBarcodes(ctx context.Context, barcodes []string) (map[string]bool, error) {
	if len(barcodes) == 0 {
		return map[string]bool{}, nil
	}

	db := config.GetDB()
	var found []string
	if err := db.WithContext(ctx).Model(&Asset{}).
		Where("UPPER(barcode) IN ?", barcodes).
		Pluck("barcode", &found).Error; err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(found))
	for _, b := range found {
		result[utils.NormalizeBarcode(b)] = true
	}
	return result, nil
}
