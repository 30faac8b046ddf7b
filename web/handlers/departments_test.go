package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gatelog.io/gatelog/config"
	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/core/models"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := core.Open(config.Database{Driver: "sqlite", Path: ":memory:"}, core.LogLevelSilent)
	require.NoError(t, err)

	r := gin.New()
	ep := &Endpoint{DB: db, Reporter: core.NewReporter(db, nil, nil)}
	RegisterDepartments(r.Group(""), ep)
	return r, db
}

func getJSON(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestFindDepartmentByID(t *testing.T) {
	r, db := setupRouter(t)

	dept := models.Department{Name: "Бухгалтерия", Priority: 5}
	require.NoError(t, db.Create(&dept).Error)

	w, body := getJSON(t, r, fmt.Sprintf("/departments/%d", dept.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Бухгалтерия", data["name"])
	assert.EqualValues(t, 5, data["priority"])

	w, _ = getJSON(t, r, "/departments/9999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFindPositionByID(t *testing.T) {
	r, db := setupRouter(t)

	pos := models.Position{Name: "Инженер"}
	require.NoError(t, db.Create(&pos).Error)

	w, body := getJSON(t, r, fmt.Sprintf("/positions/%d", pos.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Инженер", data["name"])

	w, _ = getJSON(t, r, "/positions/9999")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
