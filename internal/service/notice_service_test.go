package service

import (
	"context"
	"database/sql"
	"fmt"
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

type noticeStoreStub struct {
	notices map[string]*models.Notice
	filter  models.NoticeFilter
}

func (s *noticeStoreStub) Create(ctx context.Context, notice *models.Notice) error {
	notice.ID = fmt.Sprintf("n%d", len(s.notices)+1)
	copy := *notice
	s.notices[notice.ID] = &copy
	return nil
}

func (s *noticeStoreStub) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	if n, ok := s.notices[id]; ok {
		copy := *n
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *noticeStoreStub) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, error) {
	s.filter = filter
	var out []models.Notice
	for _, n := range s.notices {
		if filter.Category == "" || n.Category == filter.Category {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *noticeStoreStub) Delete(ctx context.Context, id string) (*models.Notice, error) {
	n, ok := s.notices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(s.notices, id)
	return n, nil
}

func newNoticeServiceForTest(t *testing.T) (*NoticeService, *noticeStoreStub, *recordingCleanup) {
	repo := &noticeStoreStub{notices: map[string]*models.Notice{}}
	cleanup := &recordingCleanup{}
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	svc := NewNoticeService(repo, newTestBucket(t), signer, cleanup, nil, nil, &auditRecorder{}, nil, zap.NewNop(), NoticeServiceConfig{})
	return svc, repo, cleanup
}

func TestNoticeServiceUploadRequiresAdminAndPDF(t *testing.T) {
	svc, repo, _ := newNoticeServiceForTest(t)
	ctx := context.Background()
	req := dto.UploadNoticeRequest{Title: "Board exam routine", Category: models.NoticeCategoryExam}

	_, err := svc.Upload(ctx, testStudent, req, pdfUpload("routine.pdf"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.Upload(ctx, testAdmin, req, pngUpload("routine.png"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnsupportedMedia.Code))

	_, err = svc.Upload(ctx, testAdmin, dto.UploadNoticeRequest{Title: "x", Category: "Sports"}, pdfUpload("a.pdf"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	notice, err := svc.Upload(ctx, testAdmin, req, pdfUpload("routine.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "routine.pdf", notice.FileName)
	assert.Contains(t, notice.FilePath, "notices/")
	assert.NotEmpty(t, notice.FileSize)
	assert.Len(t, repo.notices, 1)
}

func TestNoticeServiceListValidatesCategory(t *testing.T) {
	svc, repo, _ := newNoticeServiceForTest(t)

	_, _, err := svc.List(context.Background(), dto.NoticeQuery{Category: "Sports"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	notices, hit, err := svc.List(context.Background(), dto.NoticeQuery{Category: "Result", Search: " merit "})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, notices)
	assert.Equal(t, models.NoticeCategoryResult, repo.filter.Category)
	assert.Equal(t, "merit", repo.filter.Search)
}

func TestNoticeServiceDownloadAndDelete(t *testing.T) {
	svc, _, cleanup := newNoticeServiceForTest(t)
	ctx := context.Background()
	notice, err := svc.Upload(ctx, testAdmin, dto.UploadNoticeRequest{Title: "Result", Category: models.NoticeCategoryResult}, pdfUpload("result.pdf"))
	require.NoError(t, err)

	_, err = svc.Download(ctx, nil, notice.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
	link, err := svc.Download(ctx, testStudent, notice.ID)
	require.NoError(t, err)
	assert.Contains(t, link.DownloadURL, "/api/v1/files/download?token=")

	require.NoError(t, svc.Delete(ctx, testAdmin, notice.ID))
	assert.Equal(t, []string{notice.FilePath}, cleanup.keys)
	err = svc.Delete(ctx, testAdmin, notice.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.0 KB", humanSize(1024))
	assert.Equal(t, "1.2 MB", humanSize(1258291))
}
