package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gatelog.io/gatelog/config"
	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/web/common"
)

// Endpoint carries the shared collaborators every handler needs.
type Endpoint struct {
	DB       *gorm.DB
	Reporter *core.Reporter
	Cfg      config.Config
	Log      *zap.Logger
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid id"))
		return 0, false
	}
	return uint(id), true
}

func pageQuery(c *gin.Context) core.PageQuery {
	q := core.PageQuery{Page: 1, PerPage: core.DefaultPerPage, Search: c.Query("search")}
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		q.Page = v
	}
	if v, err := strconv.Atoi(c.Query("per_page")); err == nil {
		q.PerPage = v
	}
	if raw := c.Query("department_ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && id > 0 {
				q.DepartmentIDs = append(q.DepartmentIDs, uint(id))
			}
		}
	}
	return q
}

// respondError maps core sentinel errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var inUse *core.ErrInUse
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, common.NewErrorResponse("not found"))
	case errors.Is(err, core.ErrConflict):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
	case errors.As(err, &inUse):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(inUse.Error()))
	default:
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
	}
}

// isDuplicateKey detects unique-constraint collisions from either backend.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
