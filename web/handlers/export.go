package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/web/common"
)

func RegisterExport(r *gin.RouterGroup, ep *Endpoint) {
	r.GET("/reports/schedule/export", ep.ExportSchedule)
}

var exportHeader = []string{
	"Employee", "Department", "First entry", "Last exit",
	"Work hours", "Status", "Late minutes",
}

// ExportSchedule streams the day's full schedule as an XLSX workbook.
// Pagination is bypassed; the export always covers every employee.
func (ep *Endpoint) ExportSchedule(c *gin.Context) {
	date, ok := ep.reportDate(c)
	if !ok {
		return
	}

	q := pageQuery(c)
	q.Page = 1
	q.PerPage = core.MaxPerPage

	var entries []core.ScheduleEntry
	for {
		page, err := ep.Reporter.DailySchedule(date, q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
			return
		}
		entries = append(entries, page.Employees...)
		if q.Page >= page.TotalPages {
			break
		}
		q.Page++
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Schedule"
	f.SetSheetName("Sheet1", sheet)

	for i, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	for row, e := range entries {
		values := []any{
			e.FullName,
			derefOr(e.DepartmentName, ""),
			formatClock(e.FirstEntry),
			formatClock(e.LastExit),
			floatOr(e.WorkHours),
			e.Status,
			e.LateMinutes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	f.SetColWidth(sheet, "A", "B", 30)
	f.SetColWidth(sheet, "C", "G", 14)

	filename := fmt.Sprintf("schedule-%s.xlsx", date.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		ep.Log.Error("write xlsx", zap.Error(err))
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04:05")
}

func floatOr(f *float64) any {
	if f == nil {
		return ""
	}
	return *f
}
