package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/skud"
	"gatelog.io/gatelog/web/common"
)

func RegisterUpload(r *gin.RouterGroup, ep *Endpoint) {
	r.POST("/upload-skud-file", ep.UploadAccessLog)
}

// UploadAccessLog ingests a raw badge-reader export. The body size cap is
// enforced before any parsing; oversized uploads fail the multipart read.
func (ep *Endpoint) UploadAccessLog(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ep.Cfg.Server.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("file is required and must fit the upload limit"))
		return
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".txt" {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("only .txt exports are accepted"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	defer f.Close()

	parser := skud.NewParser(skud.Config{
		ExcludeEmployees: ep.Cfg.Filtering.ExcludeEmployees,
		ExcludeDoors:     ep.Cfg.Filtering.ExcludeDoors,
	})
	importer := core.NewImporter(ep.DB, parser, ep.Log)

	stats, err := importer.ImportFile(c.Request.Context(), f)
	if err != nil {
		ep.Log.Error("import failed", zap.String("file", fileHeader.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	ep.Log.Info("import finished",
		zap.String("file", fileHeader.Filename),
		zap.Int("lines", stats.Lines),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped))

	c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
}
