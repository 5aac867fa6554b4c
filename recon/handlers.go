package recon

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/config"
	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"github.com/gin-gonic/gin"
)

const lastBulkReportKey = "recon:last_bulk_report"

// RegisterRoutes mounts the reconciliation API under the given group.
func RegisterRoutes(rg *gin.RouterGroup, sync *Synchronizer) {
	rg.GET("/items", ListItemsHandler(sync))
	rg.POST("/confirm/:id", ConfirmHandler(sync))
	rg.POST("/confirm", BulkConfirmHandler(sync))
	rg.GET("/confirm/last-report", LastBulkReportHandler())

	rg.GET("/records", ListRecordsHandler(sync))
	rg.POST("/records", CreateRecordHandler())
	rg.PUT("/records/:id", UpdateRecordHandler())
	rg.DELETE("/records/:id", DeleteRecordHandler())

	rg.GET("/audit", ListAuditHandler())
	rg.DELETE("/audit", PurgeAuditHandler())
}

func parseIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parseWindow(c *gin.Context) (*models.DateWindow, bool) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" && to == "" {
		return nil, true
	}

	window := &models.DateWindow{
		From: time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Now().AddDate(0, 0, 1),
	}
	if from != "" {
		t, err := time.Parse(utils.StorageDateLayout, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, expected YYYY-MM-DD"})
			return nil, false
		}
		window.From = t
	}
	if to != "" {
		t, err := time.Parse(utils.StorageDateLayout, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, expected YYYY-MM-DD"})
			return nil, false
		}
		window.To = t.AddDate(0, 0, 1)
	}
	return window, true
}

// ListItemsHandler projects the pending feed onto the asset register.
// The reconciliation view is computed per request, never stored.
func ListItemsHandler(sync *Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, ok := parseWindow(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		records, err := sync.Records.GetRecords(ctx, window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		assets, err := sync.Assets.GetAllAssets(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := BuildItems(records, NewAssetIndex(assets))
		c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
	}
}

func ConfirmHandler(sync *Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		result, err := sync.Reconcile(c.Request.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, utils.ErrorRecordNotFound):
				status = http.StatusNotFound
			case errors.Is(err, utils.ErrorAlreadySynced):
				status = http.StatusConflict
			case errors.Is(err, utils.ErrorNoMatchedAsset),
				errors.Is(err, utils.ErrorBarcodeRequired),
				utils.IsValidationError(err):
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type bulkConfirmRequest struct {
	RecordIds []int `json:"record_ids" binding:"required,min=1"`
}

func BulkConfirmHandler(sync *Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req bulkConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_ids is required"})
			return
		}

		ctx := c.Request.Context()
		report, err := sync.ReconcileMany(ctx, req.RecordIds)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		logger := config.GetLogger()
		if _, err := config.GetRedisCounter(ctx, "recon:bulk_runs"); err != nil {
			config.LogError(logger, "recon", "BulkConfirmHandler", "bulk run counter", nil, err)
		}
		if err := config.SetRedisObject(lastBulkReportKey, report, 24*time.Hour); err != nil {
			config.LogError(logger, "recon", "BulkConfirmHandler", "caching bulk report", nil, err)
		}
		if utils.EnvBoolDefault("FILTER_SYNC_PUBLISH", false) {
			if err := PublishReconcileDone(ctx, report); err != nil {
				config.LogError(logger, "recon", "BulkConfirmHandler", "publishing completion event", nil, err)
			}
		}

		c.JSON(http.StatusOK, report)
	}
}

// LastBulkReportHandler serves the most recent bulk confirm report
// from the Redis cache, so operators can re-read an outcome after the
// response is gone.
func LastBulkReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var report BulkReconcileReport
		found, err := config.GetRedisObject(lastBulkReportKey, &report)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "no bulk reconcile has run recently"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func ListRecordsHandler(sync *Synchronizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		window, ok := parseWindow(c)
		if !ok {
			return
		}

		records, err := sync.Records.GetRecords(c.Request.Context(), window)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records, "total": len(records)})
	}
}

func CreateRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFilterChangeRecord
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		record, err := models.CreateFilterChangeRecord(c.Request.Context(), &input)
		if err != nil {
			status := http.StatusInternalServerError
			if utils.IsValidationError(err) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

func UpdateRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}
		var input models.NewFilterChangeRecord
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		record, err := models.UpdateFilterChangeRecord(c.Request.Context(), id, &input)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, utils.ErrorRecordNotFound):
				status = http.StatusNotFound
			case errors.Is(err, utils.ErrorAlreadySynced):
				status = http.StatusConflict
			case utils.IsValidationError(err):
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func ListAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var assetId *int
		if raw := c.Query("asset_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset_id"})
				return
			}
			assetId = &id
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		var after *string
		if cursor := c.Query("after"); cursor != "" {
			after = &cursor
		}

		conn, err := models.PaginateAuditEntries(c.Request.Context(), assetId, limit, after)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func PurgeAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var before *time.Time
		if raw := c.Query("before"); raw != "" {
			t, err := time.Parse(utils.StorageDateLayout, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before date, expected YYYY-MM-DD"})
				return
			}
			before = &t
		}

		purged, err := models.PurgeAuditEntries(c.Request.Context(), before)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"purged": purged})
	}
}

func DeleteRecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		record, err := models.DeleteFilterChangeRecord(c.Request.Context(), id)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, utils.ErrorRecordNotFound):
				status = http.StatusNotFound
			case errors.Is(err, utils.ErrorAlreadySynced):
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}
