package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/utils"
	"gatelog.io/gatelog/web/common"
)

func RegisterReports(r *gin.RouterGroup, ep *Endpoint) {
	r.GET("/employee-schedule", ep.EmployeeSchedule)
	r.GET("/employee-schedule-range", ep.EmployeeScheduleRange)
	r.GET("/employee-history/:id", ep.EmployeeHistory)
	r.GET("/dashboard-stats", ep.DashboardStats)
	r.GET("/dashboard-employee-lists", ep.DashboardEmployeeLists)
	r.GET("/dashboard-birthdays", ep.DashboardBirthdays)
	r.GET("/dashboard-employee-exceptions", ep.DashboardEmployeeExceptions)
}

// reportDate resolves the "date" query param. When it is absent the latest
// observed event day is used, falling back to today on an empty store.
func (ep *Endpoint) reportDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		if latest, ok := ep.Reporter.LatestEventDate(); ok {
			return latest, true
		}
		return core.DateOf(time.Now()), true
	}

	date, err := utils.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return time.Time{}, false
	}
	return date, true
}

func (ep *Endpoint) EmployeeSchedule(c *gin.Context) {
	date, ok := ep.reportDate(c)
	if !ok {
		return
	}

	page, err := ep.Reporter.DailySchedule(date, pageQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(page))
}

func (ep *Endpoint) EmployeeScheduleRange(c *gin.Context) {
	start, err := utils.ParseDate(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	end, err := utils.ParseDate(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	page, err := ep.Reporter.ScheduleRange(start, end, pageQuery(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(page))
}

func (ep *Endpoint) EmployeeHistory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	daysBack := core.DefaultHistoryDays
	if raw := c.Query("days_back"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid days_back"))
			return
		}
		daysBack = v
	}

	hist, err := ep.Reporter.EmployeeHistory(id, daysBack)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(hist))
}

func (ep *Endpoint) DashboardStats(c *gin.Context) {
	date, ok := ep.reportDate(c)
	if !ok {
		return
	}

	stats, err := ep.Reporter.Stats(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
}

func (ep *Endpoint) DashboardEmployeeLists(c *gin.Context) {
	date, ok := ep.reportDate(c)
	if !ok {
		return
	}

	lists, err := ep.Reporter.EmployeeLists(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(lists))
}

func (ep *Endpoint) DashboardBirthdays(c *gin.Context) {
	date, ok := ep.reportDate(c)
	if !ok {
		return
	}

	birthdays, err := ep.Reporter.Birthdays(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(birthdays))
}

func (ep *Endpoint) DashboardEmployeeExceptions(c *gin.Context) {
	date, ok := ep.reportDate(c)
	if !ok {
		return
	}

	exceptions, err := ep.Reporter.ExceptionsForDate(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(exceptions))
}
