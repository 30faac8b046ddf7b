package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/web/common"
)

func RegisterDepartments(r *gin.RouterGroup, ep *Endpoint) {
	r.GET("/departments", ep.ListDepartments)
	r.POST("/departments", ep.CreateDepartment)
	r.GET("/departments/:id", ep.FindDepartment)
	r.PUT("/departments/:id", ep.UpdateDepartment)
	r.DELETE("/departments/:id", ep.DeleteDepartment)

	r.GET("/positions", ep.ListPositions)
	r.POST("/positions", ep.CreatePosition)
	r.GET("/positions/:id", ep.FindPosition)
	r.PUT("/positions/:id", ep.UpdatePosition)
	r.DELETE("/positions/:id", ep.DeletePosition)

	r.GET("/department-positions", ep.ListDepartmentPositions)
	r.POST("/department-positions", ep.CreateDepartmentPosition)
	r.DELETE("/department-positions/:id", ep.DeleteDepartmentPosition)
	r.GET("/departments/:id/positions", ep.ListPositionsOfDepartment)
	r.GET("/positions/:id/departments", ep.ListDepartmentsOfPosition)
}

func (ep *Endpoint) ListDepartments(c *gin.Context) {
	var departments []models.Department
	err := ep.DB.Where("name <> ?", models.UnspecifiedName).
		Order("priority DESC, name").Find(&departments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(departments))
}

func (ep *Endpoint) FindDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dept models.Department
	if err := ep.DB.First(&dept, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(dept))
}

type DepartmentDTO struct {
	Name     string `json:"name" binding:"required"`
	Priority *int   `json:"priority,omitempty"`
}

func (ep *Endpoint) CreateDepartment(c *gin.Context) {
	var dto DepartmentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	dept := models.Department{Name: dto.Name}
	if dto.Priority != nil {
		dept.Priority = *dto.Priority
	}
	if err := ep.DB.Create(&dept).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("department already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(dept))
}

func (ep *Endpoint) UpdateDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto DepartmentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var dept models.Department
	if err := ep.DB.First(&dept, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if dept.Name == models.UnspecifiedName {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("the built-in department cannot be changed"))
		return
	}

	updates := map[string]any{"name": dto.Name}
	if dto.Priority != nil {
		updates["priority"] = *dto.Priority
	}
	if err := ep.DB.Model(&dept).Updates(updates).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("department already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(dept))
}

// DeleteDepartment refuses to delete a department that still has employees
// or links, reporting the blocking count.
func (ep *Endpoint) DeleteDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dept models.Department
	if err := ep.DB.First(&dept, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if dept.Name == models.UnspecifiedName {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("the built-in department cannot be deleted"))
		return
	}

	var employees int64
	if err := ep.DB.Model(&models.Employee{}).Where("department_id = ?", id).Count(&employees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if employees > 0 {
		respondError(c, &core.ErrInUse{Entity: "department", Count: employees})
		return
	}

	err := ep.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("department_id = ?", id).Delete(&models.DepartmentPosition{}).Error; err != nil {
			return err
		}
		if err := tx.Where("department_id = ?", id).Delete(&models.DepartmentException{}).Error; err != nil {
			return err
		}
		return tx.Delete(&dept).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

func (ep *Endpoint) ListPositions(c *gin.Context) {
	var positions []models.Position
	err := ep.DB.Where("name <> ?", models.UnspecifiedName).
		Order("name").Find(&positions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(positions))
}

func (ep *Endpoint) FindPosition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var pos models.Position
	if err := ep.DB.First(&pos, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(pos))
}

type PositionDTO struct {
	Name string `json:"name" binding:"required"`
}

func (ep *Endpoint) CreatePosition(c *gin.Context) {
	var dto PositionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	pos := models.Position{Name: dto.Name}
	if err := ep.DB.Create(&pos).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("position already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(pos))
}

func (ep *Endpoint) UpdatePosition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto PositionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var pos models.Position
	if err := ep.DB.First(&pos, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if pos.Name == models.UnspecifiedName {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("the built-in position cannot be changed"))
		return
	}

	if err := ep.DB.Model(&pos).Update("name", dto.Name).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("position already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(pos))
}

func (ep *Endpoint) DeletePosition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var pos models.Position
	if err := ep.DB.First(&pos, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if pos.Name == models.UnspecifiedName {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("the built-in position cannot be deleted"))
		return
	}

	var employees int64
	if err := ep.DB.Model(&models.Employee{}).Where("position_id = ?", id).Count(&employees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if employees > 0 {
		respondError(c, &core.ErrInUse{Entity: "position", Count: employees})
		return
	}

	err := ep.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("position_id = ?", id).Delete(&models.DepartmentPosition{}).Error; err != nil {
			return err
		}
		return tx.Delete(&pos).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

// DepartmentPositionView resolves the link ids to names for listing.
type DepartmentPositionView struct {
	ID             uint   `json:"id"`
	DepartmentID   uint   `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
	PositionID     uint   `json:"positionId"`
	PositionName   string `json:"positionName"`
}

func (ep *Endpoint) ListDepartmentPositions(c *gin.Context) {
	var links []models.DepartmentPosition
	err := ep.DB.Preload("Department").Preload("Position").Find(&links).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	out := make([]DepartmentPositionView, 0, len(links))
	for _, l := range links {
		out = append(out, DepartmentPositionView{
			ID:             l.ID,
			DepartmentID:   l.DepartmentID,
			DepartmentName: l.Department.Name,
			PositionID:     l.PositionID,
			PositionName:   l.Position.Name,
		})
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

type DepartmentPositionDTO struct {
	DepartmentID uint `json:"departmentId" binding:"required"`
	PositionID   uint `json:"positionId" binding:"required"`
}

func (ep *Endpoint) CreateDepartmentPosition(c *gin.Context) {
	var dto DepartmentPositionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var dept models.Department
	if err := ep.DB.First(&dept, dto.DepartmentID).Error; err != nil {
		respondError(c, err)
		return
	}
	var pos models.Position
	if err := ep.DB.First(&pos, dto.PositionID).Error; err != nil {
		respondError(c, err)
		return
	}

	link := models.DepartmentPosition{DepartmentID: dto.DepartmentID, PositionID: dto.PositionID}
	if err := ep.DB.Create(&link).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("link already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(link))
}

// DeleteDepartmentPosition removes a link unless employees still hold the
// position inside that department.
func (ep *Endpoint) DeleteDepartmentPosition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var link models.DepartmentPosition
	if err := ep.DB.First(&link, id).Error; err != nil {
		respondError(c, err)
		return
	}

	var holders int64
	err := ep.DB.Model(&models.Employee{}).
		Where("department_id = ? AND position_id = ?", link.DepartmentID, link.PositionID).
		Count(&holders).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if holders > 0 {
		respondError(c, &core.ErrInUse{Entity: "link", Count: holders})
		return
	}

	if err := ep.DB.Delete(&link).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

func (ep *Endpoint) ListPositionsOfDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var positions []models.Position
	err := ep.DB.
		Joins("JOIN department_positions ON department_positions.position_id = positions.id").
		Where("department_positions.department_id = ?", id).
		Order("positions.name").Find(&positions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(positions))
}

func (ep *Endpoint) ListDepartmentsOfPosition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var departments []models.Department
	err := ep.DB.
		Joins("JOIN department_positions ON department_positions.department_id = departments.id").
		Where("department_positions.position_id = ?", id).
		Order("departments.name").Find(&departments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(departments))
}
