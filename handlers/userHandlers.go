package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/facilities_backend/models"
	"bitbucket.org/mmdatafocus/facilities_backend/utils"
	"github.com/gin-gonic/gin"
)

func RegisterUserRoutes(r *gin.Engine, authed *gin.RouterGroup) {
	r.POST("/login", LoginHandler())
	authed.POST("/users", CreateUserHandler())
	authed.GET("/me", MeHandler())
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		info, err := models.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// CreateUserHandler is admin-only: new accounts are provisioned, not
// self-registered.
func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if isAdmin, ok := utils.GetIsAdminFromContext(ctx); !ok || !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin required"})
			return
		}

		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}

		user, err := models.CreateUser(ctx, input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		email, ok := utils.GetUserEmailFromContext(ctx)
		if !ok || email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := models.GetUserByEmail(ctx, email)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
