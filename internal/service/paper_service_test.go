package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/storage"
)

type paperStoreStub struct {
	mu        sync.Mutex
	papers    map[string]*models.Paper
	seq       int
	createErr error
	lastList  models.PaperFilter
	listCalls int
	afterList func()
}

func newPaperStoreStub() *paperStoreStub {
	return &paperStoreStub{papers: map[string]*models.Paper{}}
}

func (s *paperStoreStub) Create(ctx context.Context, paper *models.Paper) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	paper.ID = fmt.Sprintf("p%03d", s.seq)
	paper.UploadedAt = time.Date(2024, 1, s.seq, 0, 0, 0, 0, time.UTC)
	copy := *paper
	s.papers[paper.ID] = &copy
	return nil
}

func (s *paperStoreStub) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.papers[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *paperStoreStub) List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, error) {
	out := s.list(filter)
	if s.afterList != nil {
		s.afterList()
	}
	return out, nil
}

func (s *paperStoreStub) list(filter models.PaperFilter) []models.Paper {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = filter
	s.listCalls++
	var out []models.Paper
	for _, p := range s.papers {
		switch {
		case filter.PendingOnly:
			if p.Approved {
				continue
			}
		case filter.ApprovedOnly:
			if !p.Approved {
				continue
			}
		case filter.IncludeAll:
		case filter.ViewerID != "":
			if !p.Approved && p.UploadedBy != filter.ViewerID {
				continue
			}
		default:
			if !p.Approved {
				continue
			}
		}
		if filter.Semester > 0 && p.Semester != filter.Semester {
			continue
		}
		if filter.UploadedBy != "" && p.UploadedBy != filter.UploadedBy {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (s *paperStoreStub) Approve(ctx context.Context, id string, at time.Time) (*models.Paper, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[id]
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	if p.Approved {
		copy := *p
		return &copy, false, nil
	}
	p.Approved = true
	p.UpdatedAt = at
	copy := *p
	return &copy, true, nil
}

func (s *paperStoreStub) Delete(ctx context.Context, id string) (*models.Paper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(s.papers, id)
	return p, nil
}

func (s *paperStoreStub) IncrementDownloads(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.papers[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	p.Downloads++
	return p.Downloads, nil
}

func (s *paperStoreStub) Stats(ctx context.Context) (*models.PaperStats, error) {
	stats := &models.PaperStats{}
	for _, p := range s.papers {
		stats.Total++
		stats.TotalDownloads += p.Downloads
		if p.Approved {
			stats.Approved++
		} else {
			stats.Pending++
		}
	}
	return stats, nil
}

type memoryListCache struct {
	entries     map[string][]models.Paper
	invalidated int
	gen         int64
}

func (c *memoryListCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	rows, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]models.Paper)) = rows
	return true, nil
}

func (c *memoryListCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.entries[key] = value.([]models.Paper)
	return nil
}

func (c *memoryListCache) Generation(ctx context.Context, namespace string) (int64, error) {
	return c.gen, nil
}

func (c *memoryListCache) Invalidate(ctx context.Context, namespace string) error {
	c.invalidated++
	c.gen++
	c.entries = map[string][]models.Paper{}
	return nil
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type paperFixture struct {
	svc     *PaperService
	repo    *paperStoreStub
	bucket  *storage.Bucket
	signer  *storage.SignedURLSigner
	cleanup *recordingCleanup
	cache   *memoryListCache
	audit   *auditRecorder
}

func newPaperFixture(t *testing.T) *paperFixture {
	t.Helper()
	f := &paperFixture{
		repo:    newPaperStoreStub(),
		bucket:  newTestBucket(t),
		signer:  storage.NewSignedURLSigner("secret", time.Minute),
		cleanup: &recordingCleanup{},
		cache:   &memoryListCache{entries: map[string][]models.Paper{}},
		audit:   &auditRecorder{},
	}
	exports := NewExportService(ExportConfig{Enabled: true}, zap.NewNop(), nil, nil)
	f.svc = NewPaperService(f.repo, f.bucket, f.signer, f.cleanup, f.cache, exports, NewMetricsService(), f.audit, nil, zap.NewNop(), PaperServiceConfig{PageSize: 2})
	return f
}

var (
	testStudent = &models.JWTClaims{UserID: "s1", FullName: "Asha", Role: models.RoleStudent}
	testOther   = &models.JWTClaims{UserID: "s2", FullName: "Bikash", Role: models.RoleStudent}
	testAdmin   = &models.JWTClaims{UserID: "a1", FullName: "Admin", Role: models.RoleAdmin}
)

func pdfUpload(name string) FileUpload {
	body := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	return FileUpload{Filename: name, Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func validPaperRequest() dto.SubmitPaperRequest {
	return dto.SubmitPaperRequest{Title: " DBMS Final 2023 ", Subject: "DBMS", Semester: 4, ExamType: models.ExamTypeFinal, College: "Apex College"}
}

func TestPaperServiceSubmitStoresPending(t *testing.T) {
	f := newPaperFixture(t)

	paper, err := f.svc.Submit(context.Background(), testStudent, validPaperRequest(), pdfUpload("dbms final.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "DBMS Final 2023", paper.Title)
	assert.False(t, paper.Approved)
	assert.Zero(t, paper.Downloads)
	assert.Equal(t, "Asha", paper.UploaderName)
	assert.Equal(t, "application/pdf", paper.MimeType)
	assert.True(t, strings.HasPrefix(paper.FilePath, "papers/"))
	assert.True(t, strings.HasSuffix(paper.FilePath, "_dbms_final.pdf"))
	assert.Equal(t, f.bucket.PublicURL(paper.FilePath), paper.FileURL)

	exists, err := f.bucket.Exists(paper.FilePath)
	require.NoError(t, err)
	assert.True(t, exists)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionPaperSubmit, f.audit.logs[0].Action)
	assert.Equal(t, 1, f.cache.invalidated)
}

func TestPaperServiceSubmitValidatesBeforeStorage(t *testing.T) {
	f := newPaperFixture(t)

	cases := []struct {
		name   string
		req    dto.SubmitPaperRequest
		upload FileUpload
		code   string
	}{
		{"blank title", dto.SubmitPaperRequest{Title: "  ", Subject: "DBMS", Semester: 4, ExamType: models.ExamTypeFinal, College: "Apex"}, pdfUpload("a.pdf"), appErrors.ErrValidation.Code},
		{"semester out of range", dto.SubmitPaperRequest{Title: "x", Subject: "DBMS", Semester: 9, ExamType: models.ExamTypeFinal, College: "Apex"}, pdfUpload("a.pdf"), appErrors.ErrValidation.Code},
		{"unknown exam", dto.SubmitPaperRequest{Title: "x", Subject: "DBMS", Semester: 2, ExamType: "quiz", College: "Apex"}, pdfUpload("a.pdf"), appErrors.ErrValidation.Code},
		{"missing file", validPaperRequest(), FileUpload{}, appErrors.ErrValidation.Code},
		{"disallowed extension", validPaperRequest(), pdfUpload("notes.docx"), appErrors.ErrUnsupportedMedia.Code},
		{"content mismatch", validPaperRequest(), pngUpload("fake.pdf"), appErrors.ErrUnsupportedMedia.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), testStudent, tc.req, tc.upload)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, tc.code), err.Error())
		})
	}
	exists, err := f.bucket.Exists("papers")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPaperServiceSubmitRemovesFileWhenInsertFails(t *testing.T) {
	f := newPaperFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Submit(context.Background(), testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, f.audit.logs)

	stored, err := filepath.Glob(filepath.Join(f.bucket.Dir(), "papers", "*"))
	require.NoError(t, err)
	assert.Empty(t, stored, "orphaned upload left in the bucket")
}

func TestPaperServiceVisibility(t *testing.T) {
	f := newPaperFixture(t)
	ctx := context.Background()
	pending, err := f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, pending.ID, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = f.svc.Get(ctx, pending.ID, testOther)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = f.svc.Get(ctx, pending.ID, testStudent)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, pending.ID, testAdmin)
	assert.NoError(t, err)

	items, _, _, err := f.svc.List(ctx, dto.PaperQuery{}, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
	items, _, _, err = f.svc.List(ctx, dto.PaperQuery{}, testStudent)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	items, _, _, err = f.svc.List(ctx, dto.PaperQuery{}, testOther)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPaperServiceListPagesAndCachesAnonymous(t *testing.T) {
	f := newPaperFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p, err := f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("a.pdf"))
		require.NoError(t, err)
		_, err = f.svc.Approve(ctx, testAdmin, p.ID)
		require.NoError(t, err)
	}

	items, pagination, hit, err := f.svc.List(ctx, dto.PaperQuery{Page: 2}, nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 1)
	assert.Equal(t, 3, pagination.TotalCount)
	assert.Equal(t, 2, pagination.TotalPages)
	assert.True(t, f.repo.lastList.ApprovedOnly)
	assert.Equal(t, 50, f.repo.lastList.Limit)

	_, _, hit, err = f.svc.List(ctx, dto.PaperQuery{Page: 1}, nil)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, f.repo.listCalls)

	_, _, _, err = f.svc.List(ctx, dto.PaperQuery{Mine: true}, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	_, _, _, err = f.svc.List(ctx, dto.PaperQuery{ExamType: "weekly"}, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestPaperServiceApproveIsIdempotent(t *testing.T) {
	f := newPaperFixture(t)
	ctx := context.Background()
	p, err := f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, testAdmin, p.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	again, err := f.svc.Approve(ctx, testAdmin, p.ID)
	require.NoError(t, err)
	assert.True(t, again.Approved)
	assert.Equal(t, approved.Title, again.Title)

	approveLogs := 0
	for _, log := range f.audit.logs {
		if log.Action == models.AuditActionPaperApprove {
			approveLogs++
		}
	}
	assert.Equal(t, 1, approveLogs)

	_, err = f.svc.Approve(ctx, testStudent, p.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
	_, err = f.svc.Approve(ctx, testAdmin, "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestPaperServiceRejectRemovesRecordAndQueuesFile(t *testing.T) {
	f := newPaperFixture(t)
	ctx := context.Background()
	p, err := f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Reject(ctx, testAdmin, p.ID))
	assert.Equal(t, []string{p.FilePath}, f.cleanup.keys)
	_, err = f.svc.Get(ctx, p.ID, testAdmin)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	err = f.svc.Reject(ctx, testAdmin, p.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestPaperServiceListingLoadedBeforeRejectIsNotServedAfter(t *testing.T) {
	f := newPaperFixture(t)
	ctx := context.Background()
	p, err := f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, testAdmin, p.ID)
	require.NoError(t, err)

	f.repo.afterList = func() {
		f.repo.afterList = nil
		require.NoError(t, f.svc.Reject(ctx, testAdmin, p.ID))
	}
	items, _, hit, err := f.svc.List(ctx, dto.PaperQuery{}, nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, items, 1)

	items, _, hit, err = f.svc.List(ctx, dto.PaperQuery{}, nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, items)
}

func TestPaperServiceRejectDerivesKeyFromLegacyURL(t *testing.T) {
	f := newPaperFixture(t)
	f.repo.papers["legacy"] = &models.Paper{ID: "legacy", FileURL: f.bucket.PublicURL("papers/17_old paper.pdf")}

	require.NoError(t, f.svc.Reject(context.Background(), testAdmin, "legacy"))
	assert.Equal(t, []string{"papers/17_old paper.pdf"}, f.cleanup.keys)
}

func TestPaperServiceDownloadCountsEachCall(t *testing.T) {
	f := newPaperFixture(t)
	ctx := context.Background()
	p, err := f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, testAdmin, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Download(ctx, nil, p.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	var last *dto.DownloadResponse
	for i := 0; i < 3; i++ {
		last, err = f.svc.Download(ctx, testOther, p.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, last.Downloads)
	assert.Equal(t, 3, f.repo.papers[p.ID].Downloads)

	parsed, err := url.Parse(last.DownloadURL)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/files/download", parsed.Path)
	id, key, _, err := f.signer.Parse(parsed.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, p.ID, id)
	assert.Equal(t, p.FilePath, key)
}

func TestPaperServiceDownloadHidesPendingFromOthers(t *testing.T) {
	f := newPaperFixture(t)
	p, err := f.svc.Submit(context.Background(), testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.NoError(t, err)

	_, err = f.svc.Download(context.Background(), testOther, p.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Zero(t, f.repo.papers[p.ID].Downloads)
}

func TestPaperServiceStatsAndExport(t *testing.T) {
	f := newPaperFixture(t)
	ctx := context.Background()
	p, err := f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("a.pdf"))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, testStudent, validPaperRequest(), pdfUpload("b.pdf"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, testAdmin, p.ID)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Pending)

	file, err := f.svc.Export(ctx, testAdmin, "csv")
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), "DBMS Final 2023")
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(string(file.Data)), "\n"))

	_, err = f.svc.Export(ctx, testStudent, "csv")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestPaginate(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	page, meta := paginate(rows, 3, 2, 9)
	assert.Equal(t, []int{5}, page)
	assert.Equal(t, 3, meta.TotalPages)

	page, _ = paginate(rows, 10, 2, 9)
	assert.Empty(t, page)

	page, meta = paginate(rows, 0, 0, 9)
	assert.Len(t, page, 5)
	assert.Equal(t, 9, meta.PageSize)
}
