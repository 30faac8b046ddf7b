package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/web/common"
)

func RegisterExceptions(r *gin.RouterGroup, ep *Endpoint) {
	r.GET("/employee-exceptions", ep.ListEmployeeExceptions)
	r.POST("/employee-exceptions", ep.CreateEmployeeException)
	r.POST("/employee-exceptions/range", ep.CreateEmployeeExceptionRange)
	r.PUT("/employee-exceptions/:id", ep.UpdateEmployeeException)
	r.DELETE("/employee-exceptions/:id", ep.DeleteEmployeeException)

	r.GET("/department-exceptions", ep.ListDepartmentExceptions)
	r.POST("/department-exceptions", ep.CreateDepartmentException)
	r.GET("/department-exceptions/:id", ep.FindDepartmentException)
	r.DELETE("/department-exceptions/:id", ep.DeleteDepartmentException)
}

// PersonalExceptionView adds the employee name to the stored row.
type PersonalExceptionView struct {
	ID            uint   `json:"id"`
	EmployeeID    uint   `json:"employeeId"`
	EmployeeName  string `json:"employeeName"`
	Date          string `json:"date"`
	Reason        string `json:"reason"`
	ExceptionType string `json:"exceptionType"`
}

func personalExceptionView(exc models.PersonalException) PersonalExceptionView {
	return PersonalExceptionView{
		ID:            exc.ID,
		EmployeeID:    exc.EmployeeID,
		EmployeeName:  exc.Employee.FullName,
		Date:          exc.Date.Format("2006-01-02"),
		Reason:        exc.Reason,
		ExceptionType: exc.ExceptionType,
	}
}

// ListEmployeeExceptions lists waivers, optionally narrowed to one employee
// or one date.
func (ep *Endpoint) ListEmployeeExceptions(c *gin.Context) {
	q := ep.DB.Preload("Employee").Order("date DESC")
	if raw := c.Query("employee_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid employee_id"))
			return
		}
		q = q.Where("employee_id = ?", id)
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid date, expected yyyy-MM-dd"))
			return
		}
		q = q.Where("date = ?", core.DateOf(date))
	}

	var rows []models.PersonalException
	if err := q.Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	out := make([]PersonalExceptionView, 0, len(rows))
	for _, exc := range rows {
		out = append(out, personalExceptionView(exc))
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

type EmployeeExceptionDTO struct {
	EmployeeID    uint            `json:"employeeId" binding:"required"`
	Date          common.DateOnly `json:"date" binding:"required"`
	Reason        string          `json:"reason"`
	ExceptionType string          `json:"exceptionType" binding:"required"`
}

func (ep *Endpoint) CreateEmployeeException(c *gin.Context) {
	var dto EmployeeExceptionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	if dto.Date.IsZero() {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("date is required"))
		return
	}

	var emp models.Employee
	if err := ep.DB.First(&emp, dto.EmployeeID).Error; err != nil {
		respondError(c, err)
		return
	}

	exc := models.PersonalException{
		EmployeeID:    dto.EmployeeID,
		Date:          core.DateOf(dto.Date.Time),
		Reason:        dto.Reason,
		ExceptionType: dto.ExceptionType,
	}
	if err := ep.DB.Create(&exc).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("an exception for this employee and date already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	exc.Employee = emp
	c.JSON(http.StatusOK, common.NewSuccessResponse(personalExceptionView(exc)))
}

type EmployeeExceptionRangeDTO struct {
	EmployeeID    uint            `json:"employeeId" binding:"required"`
	StartDate     common.DateOnly `json:"startDate" binding:"required"`
	EndDate       common.DateOnly `json:"endDate" binding:"required"`
	Reason        string          `json:"reason"`
	ExceptionType string          `json:"exceptionType" binding:"required"`
}

// CreateEmployeeExceptionRange creates one waiver per day over a closed
// range of at most 31 days. Days that already have a waiver are updated
// in place; the response reports both counts.
func (ep *Endpoint) CreateEmployeeExceptionRange(c *gin.Context) {
	var dto EmployeeExceptionRangeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	start, end := core.DateOf(dto.StartDate.Time), core.DateOf(dto.EndDate.Time)
	if start.IsZero() || end.IsZero() {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("startDate and endDate are required"))
		return
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("startDate is after endDate"))
		return
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > core.MaxExceptionRange {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("date range exceeds 31 days"))
		return
	}

	var emp models.Employee
	if err := ep.DB.First(&emp, dto.EmployeeID).Error; err != nil {
		respondError(c, err)
		return
	}

	created, updated := 0, 0
	err := ep.DB.Transaction(func(tx *gorm.DB) error {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			var existing models.PersonalException
			err := tx.Where("employee_id = ? AND date = ?", dto.EmployeeID, d).First(&existing).Error
			switch {
			case err == nil:
				existing.Reason = dto.Reason
				existing.ExceptionType = dto.ExceptionType
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				exc := models.PersonalException{
					EmployeeID:    dto.EmployeeID,
					Date:          d,
					Reason:        dto.Reason,
					ExceptionType: dto.ExceptionType,
				}
				if err := tx.Create(&exc).Error; err != nil {
					return err
				}
				created++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"created": created,
		"updated": updated,
		"days":    days,
	}))
}

type EmployeeExceptionUpdateDTO struct {
	Reason        *string `json:"reason,omitempty"`
	ExceptionType *string `json:"exceptionType,omitempty"`
}

func (ep *Endpoint) UpdateEmployeeException(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto EmployeeExceptionUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var exc models.PersonalException
	if err := ep.DB.Preload("Employee").First(&exc, id).Error; err != nil {
		respondError(c, err)
		return
	}

	updates := map[string]any{}
	if dto.Reason != nil {
		updates["reason"] = *dto.Reason
	}
	if dto.ExceptionType != nil {
		updates["exception_type"] = *dto.ExceptionType
	}
	if len(updates) > 0 {
		if err := ep.DB.Model(&exc).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(personalExceptionView(exc)))
}

func (ep *Endpoint) DeleteEmployeeException(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var exc models.PersonalException
	if err := ep.DB.First(&exc, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := ep.DB.Delete(&exc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

// DepartmentExceptionView adds the department name to the stored row.
type DepartmentExceptionView struct {
	ID             uint   `json:"id"`
	DepartmentID   uint   `json:"departmentId"`
	DepartmentName string `json:"departmentName"`
	Reason         string `json:"reason"`
	ExceptionType  string `json:"exceptionType"`
	Permanent      bool   `json:"permanent"`
}

func departmentExceptionView(exc models.DepartmentException) DepartmentExceptionView {
	return DepartmentExceptionView{
		ID:             exc.ID,
		DepartmentID:   exc.DepartmentID,
		DepartmentName: exc.Department.Name,
		Reason:         exc.Reason,
		ExceptionType:  exc.ExceptionType,
		Permanent:      exc.Permanent,
	}
}

func (ep *Endpoint) ListDepartmentExceptions(c *gin.Context) {
	var rows []models.DepartmentException
	if err := ep.DB.Preload("Department").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	out := make([]DepartmentExceptionView, 0, len(rows))
	for _, exc := range rows {
		out = append(out, departmentExceptionView(exc))
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

type DepartmentExceptionDTO struct {
	DepartmentID  uint   `json:"departmentId" binding:"required"`
	Reason        string `json:"reason"`
	ExceptionType string `json:"exceptionType" binding:"required"`
}

// CreateDepartmentException upserts: a department carries at most one
// waiver, so posting again replaces reason and type.
func (ep *Endpoint) CreateDepartmentException(c *gin.Context) {
	var dto DepartmentExceptionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var dept models.Department
	if err := ep.DB.First(&dept, dto.DepartmentID).Error; err != nil {
		respondError(c, err)
		return
	}

	exc := models.DepartmentException{
		DepartmentID:  dto.DepartmentID,
		Reason:        dto.Reason,
		ExceptionType: dto.ExceptionType,
		Permanent:     true,
	}
	err := ep.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "department_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "exception_type", "updated_at"}),
	}).Create(&exc).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	exc.Department = dept
	c.JSON(http.StatusOK, common.NewSuccessResponse(departmentExceptionView(exc)))
}

func (ep *Endpoint) FindDepartmentException(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var exc models.DepartmentException
	if err := ep.DB.Preload("Department").First(&exc, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(departmentExceptionView(exc)))
}

func (ep *Endpoint) DeleteDepartmentException(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var exc models.DepartmentException
	if err := ep.DB.First(&exc, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := ep.DB.Delete(&exc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}
