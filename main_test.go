package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yieldboard/config"
	"yieldboard/handlers"
	"yieldboard/store"
	"yieldboard/utils"
)

func TestRouterProtectsPortalAndUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	jwt, err := utils.NewJWTManager("secret", time.Hour)
	require.NoError(t, err)
	cfg := config.Server{APIKey: "k", FrontendOrigin: "http://localhost:3000", UploadDir: t.TempDir(), UploadMaxBytes: 1 << 20}
	h := api{
		auth:        handlers.NewAuthHandlers(store.NewUserStore(db), jwt),
		tpy:         handlers.NewTPYHandlers(store.NewTPYStore(db)),
		workstation: handlers.NewWorkstationHandlers(store.NewWorkstationStore(db)),
		testboard:   handlers.NewTestboardHandlers(store.NewTestboardStore(db)),
		packing:     handlers.NewPackingHandlers(store.NewPackingStore(db)),
		portal:      handlers.NewPortalHandlers(store.NewPortalStore(db, 10, time.Second), nil),
		upload:      handlers.NewUploadHandlers(cfg.UploadDir, cfg.UploadMaxBytes),
		health:      handlers.NewHealthHandlers(db),
	}
	r := setupRouter(cfg, h, jwt)

	for _, target := range []string{"/api/v1/sql-portal/query", "/api/v1/upload/catch-file"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sql-portal/query", strings.NewReader(`{"sql":"DROP TABLE users"}`))
	req.Header.Set("X-API-KEY", "k")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	mock.ExpectPing()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
