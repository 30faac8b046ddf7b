package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/web/common"
)

func RegisterEmployees(r *gin.RouterGroup, ep *Endpoint) {
	r.GET("/employees", ep.ListEmployeesGrouped)
	r.GET("/employees/simple", ep.ListEmployeesSimple)
	r.GET("/employees/unassigned", ep.ListUnassignedEmployees)
	r.GET("/employees/deactivated", ep.ListDeactivatedEmployees)
	r.GET("/employees/:id", ep.FindEmployee)
	r.GET("/employees/by-department/:id", ep.ListEmployeesByDepartment)

	r.PUT("/employees/update-by-name", ep.UpdateEmployeeByName)
	r.PUT("/employees/:id", ep.UpdateEmployee)
	r.PUT("/employees/:id/full-name", ep.UpdateEmployeeFullName)
	r.PUT("/employees/:id/department", ep.AssignEmployeeDepartment)
	r.PUT("/employees/:id/position", ep.AssignEmployeePosition)
	r.PUT("/employees/:id/deactivate", ep.DeactivateEmployee)
	r.PUT("/employees/:id/reactivate", ep.ReactivateEmployee)
}

// EmployeeView is the employee shape returned by the listing endpoints,
// with department and position resolved to names.
type EmployeeView struct {
	ID               uint    `json:"id"`
	FullName         string  `json:"fullName"`
	FullNameExpanded *string `json:"fullNameExpanded"`
	DepartmentID     *uint   `json:"departmentId"`
	DepartmentName   *string `json:"departmentName"`
	PositionID       *uint   `json:"positionId"`
	PositionName     *string `json:"positionName"`
	CardNumber       *string `json:"cardNumber"`
	BirthDate        *string `json:"birthDate"`
	IsActive         bool    `json:"isActive"`
}

type DepartmentGroup struct {
	DepartmentID   *uint          `json:"departmentId"`
	DepartmentName string         `json:"departmentName"`
	Priority       int            `json:"priority"`
	Employees      []EmployeeView `json:"employees"`
}

func employeeView(emp models.Employee) EmployeeView {
	v := EmployeeView{
		ID:               emp.ID,
		FullName:         emp.FullName,
		FullNameExpanded: emp.FullNameExpanded,
		DepartmentID:     emp.DepartmentID,
		PositionID:       emp.PositionID,
		CardNumber:       emp.CardNumber,
		IsActive:         emp.IsActive,
	}
	if emp.Department != nil {
		v.DepartmentName = &emp.Department.Name
	}
	if emp.Position != nil {
		v.PositionName = &emp.Position.Name
	}
	if emp.BirthDate != nil {
		s := emp.BirthDate.Format("2006-01-02")
		v.BirthDate = &s
	}
	return v
}

// ListEmployeesGrouped returns the active roster grouped by department,
// departments ordered by priority then name, employees by name.
func (ep *Endpoint) ListEmployeesGrouped(c *gin.Context) {
	var employees []models.Employee
	err := ep.DB.Preload("Department").Preload("Position").
		Where("is_active = ?", true).
		Order("full_name").Find(&employees).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	groups := map[string]*DepartmentGroup{}
	for _, emp := range employees {
		name := models.UnspecifiedName
		priority := 0
		var deptID *uint
		if emp.Department != nil {
			name = emp.Department.Name
			priority = emp.Department.Priority
			deptID = emp.DepartmentID
		}
		g, ok := groups[name]
		if !ok {
			g = &DepartmentGroup{DepartmentID: deptID, DepartmentName: name, Priority: priority}
			groups[name] = g
		}
		g.Employees = append(g.Employees, employeeView(emp))
	}

	out := make([]DepartmentGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].DepartmentName < out[j].DepartmentName
	})

	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

func (ep *Endpoint) ListEmployeesSimple(c *gin.Context) {
	var employees []models.Employee
	err := ep.DB.Preload("Department").Preload("Position").
		Where("is_active = ?", true).
		Order("full_name").Find(&employees).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	out := make([]EmployeeView, 0, len(employees))
	for _, emp := range employees {
		out = append(out, employeeView(emp))
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

// ListUnassignedEmployees lists active employees still sitting in the
// sentinel department, i.e. imported from raw logs and never triaged.
func (ep *Endpoint) ListUnassignedEmployees(c *gin.Context) {
	var employees []models.Employee
	err := ep.DB.Preload("Department").Preload("Position").
		Joins("LEFT JOIN departments ON departments.id = employees.department_id").
		Where("employees.is_active = ? AND (employees.department_id IS NULL OR departments.name = ?)",
			true, models.UnspecifiedName).
		Order("employees.full_name").Find(&employees).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	out := make([]EmployeeView, 0, len(employees))
	for _, emp := range employees {
		out = append(out, employeeView(emp))
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

func (ep *Endpoint) ListDeactivatedEmployees(c *gin.Context) {
	var employees []models.Employee
	err := ep.DB.Preload("Department").Preload("Position").
		Where("is_active = ?", false).
		Order("full_name").Find(&employees).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	out := make([]EmployeeView, 0, len(employees))
	for _, emp := range employees {
		out = append(out, employeeView(emp))
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

func (ep *Endpoint) FindEmployee(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var emp models.Employee
	err := ep.DB.Preload("Department").Preload("Position").First(&emp, id).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
}

func (ep *Endpoint) ListEmployeesByDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var employees []models.Employee
	err := ep.DB.Preload("Department").Preload("Position").
		Where("department_id = ? AND is_active = ?", id, true).
		Order("full_name").Find(&employees).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	out := make([]EmployeeView, 0, len(employees))
	for _, emp := range employees {
		out = append(out, employeeView(emp))
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(out))
}

type EmployeeUpdateDTO struct {
	FullNameExpanded *string          `json:"fullNameExpanded,omitempty"`
	DepartmentID     *uint            `json:"departmentId,omitempty"`
	PositionID       *uint            `json:"positionId,omitempty"`
	CardNumber       *string          `json:"cardNumber,omitempty"`
	BirthDate        *common.DateOnly `json:"birthDate,omitempty"`
}

func (ep *Endpoint) UpdateEmployee(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto EmployeeUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var emp models.Employee
	if err := ep.DB.First(&emp, id).Error; err != nil {
		respondError(c, err)
		return
	}

	updates := map[string]any{}
	if dto.FullNameExpanded != nil {
		updates["full_name_expanded"] = *dto.FullNameExpanded
	}
	if dto.DepartmentID != nil {
		updates["department_id"] = *dto.DepartmentID
	}
	if dto.PositionID != nil {
		updates["position_id"] = *dto.PositionID
	}
	if dto.CardNumber != nil {
		updates["card_number"] = *dto.CardNumber
	}
	if dto.BirthDate != nil {
		if dto.BirthDate.IsZero() {
			updates["birth_date"] = nil
		} else {
			updates["birth_date"] = dto.BirthDate.Time
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
		return
	}

	if err := ep.DB.Model(&emp).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if err := ep.DB.Preload("Department").Preload("Position").First(&emp, id).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
}

type FullNameUpdateDTO struct {
	FullName string `json:"fullName" binding:"required"`
}

// UpdateEmployeeFullName renames the canonical short name. The name is the
// identity used by the importer, so collisions are rejected.
func (ep *Endpoint) UpdateEmployeeFullName(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto FullNameUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var emp models.Employee
	if err := ep.DB.First(&emp, id).Error; err != nil {
		respondError(c, err)
		return
	}

	if err := ep.DB.Model(&emp).Update("full_name", dto.FullName).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("an employee with this name already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
}

type UpdateByNameDTO struct {
	FullName         string  `json:"fullName" binding:"required"`
	FullNameExpanded *string `json:"fullNameExpanded,omitempty"`
	CardNumber       *string `json:"cardNumber,omitempty"`
}

// UpdateEmployeeByName updates an employee addressed by the raw short name,
// for tooling that works off the log identity rather than the id.
func (ep *Endpoint) UpdateEmployeeByName(c *gin.Context) {
	var dto UpdateByNameDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var emp models.Employee
	if err := ep.DB.Where("full_name = ?", dto.FullName).First(&emp).Error; err != nil {
		respondError(c, err)
		return
	}

	updates := map[string]any{}
	if dto.FullNameExpanded != nil {
		updates["full_name_expanded"] = *dto.FullNameExpanded
	}
	if dto.CardNumber != nil {
		updates["card_number"] = *dto.CardNumber
	}
	if len(updates) > 0 {
		if err := ep.DB.Model(&emp).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
}

type AssignDepartmentDTO struct {
	DepartmentID *uint `json:"departmentId"`
}

func (ep *Endpoint) AssignEmployeeDepartment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto AssignDepartmentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var emp models.Employee
	if err := ep.DB.First(&emp, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if dto.DepartmentID != nil {
		var dept models.Department
		if err := ep.DB.First(&dept, *dto.DepartmentID).Error; err != nil {
			respondError(c, err)
			return
		}
	}

	// Moving departments invalidates the old position assignment.
	updates := map[string]any{"department_id": dto.DepartmentID, "position_id": nil}
	if err := ep.DB.Model(&emp).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
}

type AssignPositionDTO struct {
	PositionID *uint `json:"positionId"`
}

// AssignEmployeePosition sets the position, requiring it to be linked to
// the employee's current department.
func (ep *Endpoint) AssignEmployeePosition(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var dto AssignPositionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var emp models.Employee
	if err := ep.DB.First(&emp, id).Error; err != nil {
		respondError(c, err)
		return
	}

	if dto.PositionID != nil {
		if emp.DepartmentID == nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("employee has no department"))
			return
		}
		var link models.DepartmentPosition
		err := ep.DB.Where("department_id = ? AND position_id = ?", *emp.DepartmentID, *dto.PositionID).
			First(&link).Error
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("position is not available in the employee's department"))
			return
		}
	}

	if err := ep.DB.Model(&emp).Update("position_id", dto.PositionID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
}

func (ep *Endpoint) DeactivateEmployee(c *gin.Context) {
	ep.setEmployeeActive(c, false)
}

func (ep *Endpoint) ReactivateEmployee(c *gin.Context) {
	ep.setEmployeeActive(c, true)
}

func (ep *Endpoint) setEmployeeActive(c *gin.Context, active bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var emp models.Employee
	if err := ep.DB.First(&emp, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := ep.DB.Model(&emp).Update("is_active", active).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(employeeView(emp)))
}
