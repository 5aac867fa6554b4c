package importer

import (
	"io"
	"net/http"

	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes bounds the in-memory copy of an upload.
const maxUploadBytes = 16 << 20

func RegisterRoutes(rg *gin.RouterGroup, im *Importer) {
	rg.POST("/upload", UploadHandler(im))
}

// UploadHandler takes a multipart "file" field holding a .csv or
// .xlsx asset sheet and runs the batch import under the shared lock.
func UploadHandler(im *Importer) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}

		format, err := FormatForFilename(fileHeader.Filename)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open upload"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read upload"})
			return
		}

		table, err := ParseTable(data, format)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		unlock, err := utils.SyncLock(ctx, "bulk", "importer", "UploadHandler")
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "another bulk operation is running"})
			return
		}
		defer unlock()

		report, err := im.ImportBatch(ctx, table)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
