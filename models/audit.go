package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

// AuditEntry is one append-only audit row, keyed by (asset, timestamp).
// Rows are never mutated; the only delete path is the explicit purge.
type AuditEntry struct {
	ID          int         `gorm:"primary_key" json:"id"`
	AssetId     int         `gorm:"index;not null" json:"asset_id"`
	Action      AuditAction `gorm:"size:20;not null" json:"action"`
	Actor       string      `gorm:"size:100" json:"actor"`
	ChangesJSON []byte      `gorm:"type:json" json:"-"`
	CreatedAt   time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
}

func (e *AuditEntry) Changes() []FieldChange {
	if len(e.ChangesJSON) == 0 {
		return nil
	}
	var changes []FieldChange
	if err := json.Unmarshal(e.ChangesJSON, &changes); err != nil {
		return nil
	}
	return changes
}

func NewAuditEntry(assetId int, action AuditAction, actor string, changes []FieldChange) *AuditEntry {
	changesJSON, _ := json.Marshal(changes)
	return &AuditEntry{
		AssetId:     assetId,
		Action:      action,
		Actor:       actor,
		ChangesJSON: changesJSON,
	}
}

// NewAuditEntryForCreate records every non-empty field as nil -> value.
func NewAuditEntryForCreate(assetId int, actor string, entity interface{}, excluded ...string) *AuditEntry {
	var changes []FieldChange
	fields := EntityFields(entity, excluded...)
	for _, field := range fieldOrder(entity, excluded...) {
		value := fields[field]
		if nilIfBlank(value) == nil {
			continue
		}
		changes = append(changes, FieldChange{Field: field, NewValue: nilIfBlank(value)})
	}
	return NewAuditEntry(assetId, AuditActionCreate, actor, changes)
}

// NewAuditEntryForDelete records every non-empty field as value -> nil.
func NewAuditEntryForDelete(assetId int, actor string, entity interface{}, excluded ...string) *AuditEntry {
	var changes []FieldChange
	fields := EntityFields(entity, excluded...)
	for _, field := range fieldOrder(entity, excluded...) {
		value := fields[field]
		if nilIfBlank(value) == nil {
			continue
		}
		changes = append(changes, FieldChange{Field: field, OldValue: nilIfBlank(value)})
	}
	return NewAuditEntry(assetId, AuditActionDelete, actor, changes)
}

func AppendAuditEntry(ctx context.Context, entry *AuditEntry) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(entry).Error
}

type AuditEntriesConnection struct {
	Entries  []*AuditEntry `json:"entries"`
	PageInfo *PageInfo     `json:"pageInfo"`
}

// PaginateAuditEntries reads the trail newest-first, globally or for
// one asset.
func PaginateAuditEntries(ctx context.Context, assetId *int, limit int, after *string) (*AuditEntriesConnection, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&AuditEntry{})
	if assetId != nil && *assetId > 0 {
		dbCtx = dbCtx.Where("asset_id = ?", *assetId)
	}

	cursorTime, cursorId := DecodeCompositeCursor(after)
	if cursorTime != "" {
		dbCtx = dbCtx.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursorTime, cursorTime, cursorId)
	}

	var entries []*AuditEntry
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&entries).Error; err != nil {
		return nil, err
	}

	pageInfo := &PageInfo{}
	if len(entries) > limit {
		entries = entries[:limit]
		pageInfo.HasNextPage = utils.NewTrue()
	} else {
		pageInfo.HasNextPage = utils.NewFalse()
	}
	if len(entries) > 0 {
		first := entries[0]
		last := entries[len(entries)-1]
		pageInfo.StartCursor = EncodeCompositeCursor(first.CreatedAt.Format("2006-01-02 15:04:05.000000"), first.ID)
		pageInfo.EndCursor = EncodeCompositeCursor(last.CreatedAt.Format("2006-01-02 15:04:05.000000"), last.ID)
	}

	return &AuditEntriesConnection{Entries: entries, PageInfo: pageInfo}, nil
}

// PurgeAuditEntries is the one sanctioned bulk delete on the trail.
// Admin-only; a nil cutoff removes everything.
func PurgeAuditEntries(ctx context.Context, before *time.Time) (int64, error) {
	isAdmin, ok := utils.GetIsAdminFromContext(ctx)
	if !ok || !isAdmin {
		return 0, errors.New("audit purge requires admin")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if before != nil {
		dbCtx = dbCtx.Where("created_at < ?", *before)
	} else {
		dbCtx = dbCtx.Where("1 = 1")
	}
	result := dbCtx.Delete(&AuditEntry{})
	return result.RowsAffected, result.Error
}
