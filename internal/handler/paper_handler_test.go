package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/middleware"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/repository"
	"github.com/noah-isme/studyhub-api/internal/service"
	"github.com/noah-isme/studyhub-api/pkg/storage"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n"

func newMultipartContext(t *testing.T, path string, fields map[string]string, filename, content string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req
	return c, w
}

func newTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func newTestBucket(t *testing.T) *storage.Bucket {
	t.Helper()
	bucket, err := storage.NewBucket(t.TempDir(), "http://files.test/storage")
	require.NoError(t, err)
	return bucket
}

func storedObjects(t *testing.T, bucket *storage.Bucket, prefix string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(bucket.Dir(), prefix, "*"))
	require.NoError(t, err)
	return files
}

func newPaperHandlerForTest(t *testing.T) (*PaperHandler, sqlmock.Sqlmock, *storage.Bucket) {
	t.Helper()
	db, mock := newTestDB(t)
	bucket := newTestBucket(t)
	svc := service.NewPaperService(repository.NewPaperRepository(db), bucket,
		storage.NewSignedURLSigner("secret", time.Minute), nil, nil, nil, nil, nil, nil, zap.NewNop(), service.PaperServiceConfig{})
	return NewPaperHandler(svc), mock, bucket
}

func paperForm(semester string) map[string]string {
	return map[string]string{
		"title":    "DBMS Final 2023",
		"subject":  "DBMS",
		"semester": semester,
		"examType": "final",
		"college":  "Apex College",
	}
}

var paperStudent = &models.JWTClaims{UserID: "s1", FullName: "Asha", Role: models.RoleStudent}

func TestPaperHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, mock, bucket := newPaperHandlerForTest(t)
	mock.ExpectExec("INSERT INTO papers").WillReturnResult(sqlmock.NewResult(1, 1))

	c, w := newMultipartContext(t, "/papers", paperForm("4"), "dbms final.pdf", samplePDF)
	c.Set(middleware.ContextUserKey, paperStudent)
	h.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Data models.Paper `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Data.Semester)
	assert.Equal(t, models.ExamTypeFinal, body.Data.ExamType)
	assert.False(t, body.Data.Approved)
	assert.Equal(t, "application/pdf", body.Data.MimeType)
	assert.NotContains(t, w.Body.String(), "fileUrl")
	assert.NotContains(t, w.Body.String(), "/storage/papers/")
	assert.Len(t, storedObjects(t, bucket, "papers"), 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperHandlerSubmitRejectsBadInput(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name     string
		semester string
		filename string
		content  string
		expects  int
	}{
		{"semester not a number", "four", "a.pdf", samplePDF, http.StatusBadRequest},
		{"semester out of range", "9", "a.pdf", samplePDF, http.StatusBadRequest},
		{"missing file", "4", "", "", http.StatusBadRequest},
		{"text file", "4", "notes.txt", "plain words", http.StatusUnsupportedMediaType},
		{"renamed text file", "4", "notes.pdf", "plain words", http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock, bucket := newPaperHandlerForTest(t)
			c, w := newMultipartContext(t, "/papers", paperForm(tc.semester), tc.filename, tc.content)
			c.Set(middleware.ContextUserKey, paperStudent)
			h.Submit(c)

			assert.Equal(t, tc.expects, w.Code, w.Body.String())
			assert.Empty(t, storedObjects(t, bucket, "papers"))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
