// reconcile-sweep detects and repairs half-applied reconciles. The
// three writes of a reconcile are not transactional, so a crash can
// leave an asset updated while its change record still reads pending,
// or an applied update with no audit row. The sweep finds records
// whose matched asset already carries the record's install date and
// finishes the remaining steps.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... go run ./cmd/reconcile-sweep [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/recon"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func main() {
	dryRun := flag.Bool("dry-run", false, "report incomplete reconciles without writing")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	stores := recon.NewGormStores()

	records, err := stores.GetRecords(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load change records: %v\n", err)
		os.Exit(1)
	}
	assets, err := stores.GetAllAssets(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load assets: %v\n", err)
		os.Exit(1)
	}
	idx := recon.NewAssetIndex(assets)

	repaired := 0
	auditsAdded := 0
	for _, record := range records {
		if record.SyncStatus == models.SyncStatusSynced {
			continue
		}

		installedOn, err := utils.ParseChangeDate(record.InstalledDateText)
		if err != nil {
			continue
		}
		asset, _, _ := recon.Match(record, idx)
		if asset == nil {
			continue
		}

		// The asset half of the reconcile landed iff both computed
		// dates already match.
		expiry := utils.ComputeFilterExpiry(installedOn)
		if asset.FilterInstalledOn == nil || !sameDay(*asset.FilterInstalledOn, installedOn) {
			continue
		}
		if asset.FilterExpiry == nil || !sameDay(*asset.FilterExpiry, expiry) {
			continue
		}

		fmt.Printf("record %d: asset %d (%s) updated but record still %s\n",
			record.ID, asset.ID, asset.Barcode, record.SyncStatus)
		if *dryRun {
			repaired++
			continue
		}

		if err := stores.MarkSynced(ctx, record.ID, "reconcile-sweep", time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "record %d: mark synced failed: %v\n", record.ID, err)
			continue
		}
		repaired++

		missing, err := auditMissing(ctx, asset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "record %d: audit check failed: %v\n", record.ID, err)
			continue
		}
		if missing {
			entry := models.NewAuditEntry(asset.ID, models.AuditActionReconcile, "reconcile-sweep", []models.FieldChange{{
				Field:    "reconciliationStatus",
				OldValue: utils.NilIfEmpty("Not synced"),
				NewValue: utils.NilIfEmpty("Synced via reconciliation (repaired)"),
			}})
			if err := stores.Append(ctx, entry); err != nil {
				fmt.Fprintf(os.Stderr, "record %d: audit append failed: %v\n", record.ID, err)
				continue
			}
			auditsAdded++
		}
	}

	fmt.Printf("sweep finished: %d record(s) repaired, %d audit entr(ies) backfilled\n", repaired, auditsAdded)
}

// auditMissing reports whether no reconcile audit row exists at or
// after the asset's last update. Day-level slack covers clock skew
// between the writer and the store.
func auditMissing(ctx context.Context, asset *models.Asset) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&models.AuditEntry{}).
		Where("asset_id = ? AND action = ? AND created_at >= ?",
			asset.ID, models.AuditActionReconcile, asset.UpdatedAt.Add(-24*time.Hour)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
