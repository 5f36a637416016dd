package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/internal/service"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newNoteHandlerForTest(t *testing.T) *NoteHandler {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Semester 3", "Operating Systems")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ch1.html"), []byte("<h1>Processes</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ch2.html"), []byte("<h1>Threads</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0o644))
	return NewNoteHandler(service.NewNoteService(nil, zap.NewNop(), service.NoteServiceConfig{Dir: root, URLPrefix: "/notes"}))
}

func chapterParams(semester, subject, chapter string) gin.Params {
	return gin.Params{
		{Key: "semester", Value: semester},
		{Key: "subject", Value: subject},
		{Key: "chapter", Value: chapter},
	}
}

func TestNoteHandlerChapters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newNoteHandlerForTest(t)

	c, w := newGinContext(http.MethodGet, "/notes/3/subjects/Operating%20Systems", nil)
	c.Params = chapterParams("3", "Operating Systems", "")
	h.Chapters(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data models.NoteSubject `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"ch1", "ch2"}, body.Data.Chapters)

	c, w = newGinContext(http.MethodGet, "/notes/3/subjects/Compilers", nil)
	c.Params = chapterParams("3", "Compilers", "")
	h.Chapters(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNoteHandlerChapter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newNoteHandlerForTest(t)

	c, w := newGinContext(http.MethodGet, "/notes/3/subjects/Operating%20Systems/chapters/ch1", nil)
	c.Params = chapterParams("3", "Operating Systems", "ch1")
	h.Chapter(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>Processes</h1>", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "/notes/Semester%203/Operating%20Systems/ch1.html", w.Header().Get("Content-Location"))

	c, w = newGinContext(http.MethodGet, "/notes/9/subjects/x/chapters/ch1", nil)
	c.Params = chapterParams("9", "Operating Systems", "ch1")
	h.Chapter(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoteHandlerExists(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newNoteHandlerForTest(t)

	cases := []struct {
		name    string
		params  gin.Params
		expects int
	}{
		{"present", chapterParams("3", "Operating Systems", "ch2"), http.StatusOK},
		{"missing", chapterParams("3", "Operating Systems", "ch9"), http.StatusNotFound},
		{"traversal", chapterParams("3", "..", "ch1"), http.StatusBadRequest},
		{"bad semester", chapterParams("three", "Operating Systems", "ch1"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newGinContext(http.MethodHead, "/notes", nil)
			c.Params = tc.params
			h.Exists(c)
			c.Writer.WriteHeaderNow()
			assert.Equal(t, tc.expects, w.Code)
		})
	}
}
