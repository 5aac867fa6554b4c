package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"github.com/gin-gonic/gin"
)

func RegisterCatalogRoutes(rg *gin.RouterGroup, cache *models.CatalogCache) {
	rg.GET("/:kind", ListCatalogHandler(cache))
	rg.POST("/:kind", EnsureCatalogHandler(cache))
	rg.DELETE("/:kind", DeleteCatalogHandler())
}

func parseKindParam(c *gin.Context) (models.CatalogKind, bool) {
	kind := models.CatalogKind(c.Param("kind"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown catalog kind"})
		return "", false
	}
	return kind, true
}

// ListCatalogHandler serves labels from the shared TTL cache, not the
// table, so readers may lag a recent create by up to the TTL.
func ListCatalogHandler(cache *models.CatalogCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := parseKindParam(c)
		if !ok {
			return
		}

		labels, err := cache.Labels(c.Request.Context(), kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": kind, "labels": labels})
	}
}

type catalogLabelRequest struct {
	Label string `json:"label" binding:"required"`
}

func EnsureCatalogHandler(cache *models.CatalogCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := parseKindParam(c)
		if !ok {
			return
		}
		var req catalogLabelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
			return
		}

		created, err := cache.Ensure(c.Request.Context(), kind, req.Label)
		if err != nil {
			status := http.StatusInternalServerError
			if utils.IsValidationError(err) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"kind": kind, "label": req.Label, "created": created})
	}
}

func DeleteCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := parseKindParam(c)
		if !ok {
			return
		}
		var req catalogLabelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
			return
		}

		if err := models.DeleteCatalogEntry(c.Request.Context(), kind, req.Label); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, utils.ErrorRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
