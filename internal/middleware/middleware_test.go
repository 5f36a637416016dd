package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyhub-api/internal/models"
)

type auditSink struct {
	entries []*models.AuditLog
}

func (s *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.entries = append(s.entries, log)
	return nil
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		claims *models.JWTClaims
		status int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"student", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, http.StatusForbidden},
		{"admin", &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/papers/pending", withClaims(tc.claims), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/papers/pending", nil))
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestSetCacheHitWritesMetaAndHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/papers", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/papers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &auditSink{}
	admin := &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}

	r := gin.New()
	r.GET("/papers/export", withClaims(admin), Audit(sink, models.AuditActionPaperExport, "papers"), func(c *gin.Context) {
		if c.Query("format") == "xml" {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/papers/export?format=csv", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/papers/export?format=xml", nil))

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, models.AuditActionPaperExport, entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "a1", *entry.UserID)
	assert.Nil(t, entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), "format=csv")
}
