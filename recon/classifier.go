package recon

import "bitbucket.org/mmdatafocus/facilities_backend/models"

// Classify maps match evidence to a display status. It is a pure,
// total function: every input combination lands in exactly one bucket.
//
// An already-synced record stays confirmed regardless of what the
// matcher currently sees, so completed rows keep their state when the
// register drifts afterwards.
func Classify(asset *models.Asset, barcodeMatch bool, locationMatch bool, syncStatus models.SyncStatus) ReconStatus {
	if syncStatus == models.SyncStatusSynced {
		return ReconStatusConfirmed
	}
	if asset == nil {
		return ReconStatusNotFound
	}
	if barcodeMatch && locationMatch {
		return ReconStatusConfirmed
	}
	return ReconStatusMismatch
}
