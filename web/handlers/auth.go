package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/web/common"
	"gatelog.io/gatelog/web/middlewares"
)

// RegisterAuthPublic wires the endpoints that work without a session.
func RegisterAuthPublic(r *gin.RouterGroup, ep *Endpoint) {
	r.POST("/login", ep.Login)
}

// RegisterAuth wires the session-bound auth surface. User management is
// admin-only; the role gate is attached per route group.
func RegisterAuth(r *gin.RouterGroup, ep *Endpoint) {
	r.POST("/logout", ep.Logout)
	r.GET("/me", ep.Me)

	admin := r.Group("", middlewares.RequireRole(core.RoleAdmin))
	admin.POST("/register", ep.RegisterUser)
	admin.GET("/users", ep.ListUsers)
	admin.POST("/users/create", ep.RegisterUser)
	admin.PUT("/users/:id", ep.UpdateUser)
	admin.DELETE("/users/:id", ep.DeleteUser)
	admin.POST("/users/:id/change-password", ep.ChangePassword)
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (ep *Endpoint) Login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	user, err := core.Authenticate(ep.DB, dto.Username, dto.Password)
	if errors.Is(err, core.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse("invalid username or password"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	ttl := time.Duration(ep.Cfg.Server.SessionTTLHours) * time.Hour
	token, err := core.CreateSession(ep.DB, user.ID, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"token": token,
		"user":  user,
	}))
}

func (ep *Endpoint) Logout(c *gin.Context) {
	if token, ok := middlewares.Token(c); ok {
		if err := core.DeleteSession(ep.DB, token); err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

func (ep *Endpoint) Me(c *gin.Context) {
	c.JSON(http.StatusOK, common.NewSuccessResponse(middlewares.CurrentUser(c)))
}

type UserCreateDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"fullName"`
	Role     *int   `json:"role"`
}

func (ep *Endpoint) RegisterUser(c *gin.Context) {
	var dto UserCreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	role := core.RoleViewer
	if dto.Role != nil {
		role = *dto.Role
	}
	// Nobody creates a user more privileged than themselves.
	if actor := middlewares.CurrentUser(c); actor != nil && role < actor.Role {
		c.JSON(http.StatusForbidden, common.NewErrorResponse("cannot grant a higher role than your own"))
		return
	}

	user := models.User{
		Username:     dto.Username,
		Email:        dto.Email,
		FullName:     dto.FullName,
		PasswordHash: core.HashSecret(dto.Password),
		Role:         role,
		IsActive:     true,
	}
	if err := ep.DB.Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("username already taken"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(user))
}

func (ep *Endpoint) ListUsers(c *gin.Context) {
	var users []models.User
	if err := ep.DB.Order("username").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(users))
}

type UserUpdateDTO struct {
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
	FullName *string `json:"fullName,omitempty"`
	Role     *int    `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

func (ep *Endpoint) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto UserUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var user models.User
	if err := ep.DB.First(&user, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if dto.Role != nil {
		if actor := middlewares.CurrentUser(c); actor != nil && *dto.Role < actor.Role {
			c.JSON(http.StatusForbidden, common.NewErrorResponse("cannot grant a higher role than your own"))
			return
		}
	}

	if err := ep.DB.Model(&user).Updates(dto).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(user))
}

func (ep *Endpoint) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if actor := middlewares.CurrentUser(c); actor != nil && actor.ID == id {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("cannot delete your own account"))
		return
	}

	var user models.User
	if err := ep.DB.First(&user, id).Error; err != nil {
		respondError(c, err)
		return
	}

	err := ep.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserSession{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

type ChangePasswordDTO struct {
	Password string `json:"password" binding:"required,min=6"`
}

func (ep *Endpoint) ChangePassword(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var user models.User
	if err := ep.DB.First(&user, id).Error; err != nil {
		respondError(c, err)
		return
	}

	// Changing the password kills every live session of that user.
	err := ep.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", core.HashSecret(dto.Password)).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", user.ID).Delete(&models.UserSession{}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}
