package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"github.com/gin-gonic/gin"
)

func RegisterAssetRoutes(rg *gin.RouterGroup) {
	rg.GET("", ListAssetsHandler())
	rg.POST("", CreateAssetHandler())
	rg.GET("/:id", GetAssetHandler())
	rg.PUT("/:id", UpdateAssetHandler())
	rg.DELETE("/:id", DeleteAssetHandler())
	rg.GET("/barcode/:barcode", GetAssetByBarcodeHandler())
}

func parseIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func assetErrStatus(err error) int {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrorDuplicateBarcode), utils.IsValidationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func ListAssetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		var after *string
		if cursor := c.Query("after"); cursor != "" {
			after = &cursor
		}

		assets, pageInfo, err := models.PaginateAssets(c.Request.Context(), limit, after)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"assets": assets, "pageInfo": pageInfo})
	}
}

func CreateAssetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAsset
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		asset, err := models.CreateAsset(c.Request.Context(), &input)
		if err != nil {
			c.JSON(assetErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, asset)
	}
}

func GetAssetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		asset, err := models.GetAsset(c.Request.Context(), id)
		if err != nil {
			c.JSON(assetErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func GetAssetByBarcodeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		barcode := c.Param("barcode")
		if barcode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "barcode is required"})
			return
		}

		asset, err := models.GetAssetByBarcode(c.Request.Context(), barcode)
		if err != nil {
			c.JSON(assetErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func UpdateAssetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}
		var input models.NewAsset
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		asset, err := models.UpdateAsset(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(assetErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}

func DeleteAssetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		asset, err := models.DeleteAsset(c.Request.Context(), id)
		if err != nil {
			c.JSON(assetErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, asset)
	}
}
