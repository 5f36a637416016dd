package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/pkg/cache"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
	"github.com/noah-isme/studyhub-api/pkg/export"
)

type paperStore interface {
	Create(ctx context.Context, paper *models.Paper) error
	GetByID(ctx context.Context, id string) (*models.Paper, error)
	List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, error)
	Approve(ctx context.Context, id string, at time.Time) (*models.Paper, bool, error)
	Delete(ctx context.Context, id string) (*models.Paper, error)
	IncrementDownloads(ctx context.Context, id string) (int, error)
	Stats(ctx context.Context) (*models.PaperStats, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, namespace string) error
	Generation(ctx context.Context, namespace string) (int64, error)
}

// PaperServiceConfig holds paging, caching and upload limits.
type PaperServiceConfig struct {
	MaxFileSize int64
	PageSize    int
	FetchLimit  int
	CacheTTL    time.Duration
	APIPrefix   string
}

// PaperService runs the submit, moderate and download workflow for past papers.
type PaperService struct {
	repo      paperStore
	storage   objectStorage
	signer    downloadSigner
	cleanup   cleanupScheduler
	cache     listCache
	exports   *ExportService
	metrics   *MetricsService
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cfg       PaperServiceConfig
	policy    uploadPolicy
	now       func() time.Time
}

// NewPaperService constructs the service with defaults.
func NewPaperService(repo paperStore, storage objectStorage, signer downloadSigner, cleanup cleanupScheduler, cache listCache, exports *ExportService, metrics *MetricsService, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg PaperServiceConfig) *PaperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 20 * 1024 * 1024
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 9
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 50
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &PaperService{
		repo:      repo,
		storage:   storage,
		signer:    signer,
		cleanup:   cleanup,
		cache:     cache,
		exports:   exports,
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		policy:    uploadPolicy{prefix: "papers", maxSize: cfg.MaxFileSize, allowed: paperTypes},
		now:       time.Now,
	}
}

// Submit validates and stores a paper as pending. Nothing is written to
// storage unless the metadata and file pass validation.
func (s *PaperService) Submit(ctx context.Context, actor *models.JWTClaims, req dto.SubmitPaperRequest, upload FileUpload) (*models.Paper, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Subject = strings.TrimSpace(req.Subject)
	req.College = strings.TrimSpace(req.College)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid paper details")
	}
	mimeType, err := s.policy.inspect(upload)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.Put(s.policy.objectKey(upload.Filename, s.now()), upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store paper file")
	}
	paper := &models.Paper{
		Title:        req.Title,
		Subject:      req.Subject,
		Semester:     req.Semester,
		ExamType:     req.ExamType,
		College:      req.College,
		UploadedBy:   actor.UserID,
		UploaderName: actor.FullName,
		FileURL:      s.storage.PublicURL(key),
		FilePath:     key,
		MimeType:     mimeType,
		SizeBytes:    upload.Size,
	}
	if err := s.repo.Create(ctx, paper); err != nil {
		if delErr := s.storage.Delete(key); delErr != nil {
			s.logger.Warn("failed to remove orphaned paper file", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save paper")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPaperSubmit, "papers", paper.ID, map[string]interface{}{
		"title": paper.Title, "subject": paper.Subject, "semester": paper.Semester, "examType": paper.ExamType,
	})
	s.metrics.RecordPaperSubmission()
	s.invalidate(ctx)
	return paper, nil
}

// List returns one page of papers visible to the actor. At most FetchLimit
// rows are read and paged in memory. The boolean reports a cache hit.
func (s *PaperService) List(ctx context.Context, query dto.PaperQuery, actor *models.JWTClaims) ([]models.Paper, *models.Pagination, bool, error) {
	if query.Semester < 0 || query.Semester > 8 {
		return nil, nil, false, appErrors.Clone(appErrors.ErrValidation, "semester must be between 1 and 8")
	}
	examType := models.ExamType(strings.TrimSpace(query.ExamType))
	if examType != "" && !examType.Valid() {
		return nil, nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown exam type")
	}
	filter := models.PaperFilter{
		Semester: query.Semester,
		ExamType: examType,
		College:  strings.TrimSpace(query.College),
		Subject:  strings.TrimSpace(query.Subject),
		Search:   strings.TrimSpace(query.Search),
		Limit:    s.cfg.FetchLimit,
	}
	switch {
	case actor == nil:
		if query.Mine {
			return nil, nil, false, appErrors.ErrUnauthorized
		}
		filter.ApprovedOnly = true
	case actor.IsAdmin():
		filter.IncludeAll = true
	default:
		filter.ViewerID = actor.UserID
	}
	if query.Mine && actor != nil {
		filter.UploadedBy = actor.UserID
	}

	rows, hit, err := s.fetch(ctx, filter)
	if err != nil {
		return nil, nil, false, err
	}
	items, pagination := paginate(rows, query.Page, query.PageSize, s.cfg.PageSize)
	return items, pagination, hit, nil
}

func (s *PaperService) fetch(ctx context.Context, filter models.PaperFilter) ([]models.Paper, bool, error) {
	cacheable := filter.ApprovedOnly && s.cache != nil
	key := ""
	if cacheable {
		gen, err := s.cache.Generation(ctx, "papers")
		cacheable = err == nil
		key = paperListKey(filter, gen)
	}
	if cacheable {
		var cached []models.Paper
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list papers")
	}
	if rows == nil {
		rows = []models.Paper{}
	}
	if cacheable {
		_ = s.cache.Set(ctx, key, rows, s.cfg.CacheTTL)
	}
	return rows, false, nil
}

// Get returns a paper if the actor may see it. Invisible papers look missing.
func (s *PaperService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Paper, error) {
	paper, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	viewerID := ""
	if actor != nil {
		viewerID = actor.UserID
	}
	if !paper.VisibleTo(viewerID, actor.IsAdmin()) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
	}
	return paper, nil
}

// Pending returns the moderation queue, oldest first.
func (s *PaperService) Pending(ctx context.Context, actor *models.JWTClaims) ([]models.Paper, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	papers, err := s.repo.List(ctx, models.PaperFilter{PendingOnly: true, Limit: 1000})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending papers")
	}
	if papers == nil {
		papers = []models.Paper{}
	}
	return papers, nil
}

// Approve publishes a pending paper. Approving twice is a no-op.
func (s *PaperService) Approve(ctx context.Context, actor *models.JWTClaims, id string) (*models.Paper, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	paper, changed, err := s.repo.Approve(ctx, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve paper")
	}
	if !changed {
		return paper, nil
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPaperApprove, "papers", paper.ID, map[string]interface{}{"approved": true})
	s.metrics.RecordModeration("approve")
	s.invalidate(ctx)
	return paper, nil
}

// Reject deletes the paper record and queues removal of its file.
func (s *PaperService) Reject(ctx context.Context, actor *models.JWTClaims, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	paper, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject paper")
	}
	if key := s.objectKey(paper.FilePath, paper.FileURL); key != "" && s.cleanup != nil {
		s.cleanup.Schedule(key, "paper rejected")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionPaperReject, "papers", paper.ID, map[string]interface{}{
		"title": paper.Title, "approved": paper.Approved,
	})
	s.metrics.RecordModeration("reject")
	s.invalidate(ctx)
	return nil
}

// Download counts the download and returns a signed link.
func (s *PaperService) Download(ctx context.Context, actor *models.JWTClaims, id string) (*dto.DownloadResponse, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required to download papers")
	}
	paper, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	key := s.objectKey(paper.FilePath, paper.FileURL)
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "paper file not found")
	}
	count, err := s.repo.IncrementDownloads(ctx, paper.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record download")
	}
	link, expiresAt, err := signedLink(s.signer, s.cfg.APIPrefix, paper.ID, key)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDownload("paper")
	return &dto.DownloadResponse{ID: paper.ID, DownloadURL: link, ExpiresAt: expiresAt, Downloads: count}, nil
}

// Stats returns moderation totals.
func (s *PaperService) Stats(ctx context.Context, actor *models.JWTClaims) (*models.PaperStats, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper stats")
	}
	return stats, nil
}

// Export renders the approved catalogue.
func (s *PaperService) Export(ctx context.Context, actor *models.JWTClaims, format string) (*ExportFile, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if !s.exports.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "exports are disabled")
	}
	papers, err := s.repo.List(ctx, models.PaperFilter{ApprovedOnly: true, Limit: 1000})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load papers for export")
	}
	data := export.Dataset{Headers: []string{"Title", "Subject", "Semester", "Exam", "College", "Uploader", "Downloads", "Uploaded"}}
	for _, p := range papers {
		data.Rows = append(data.Rows, map[string]string{
			"Title":     p.Title,
			"Subject":   p.Subject,
			"Semester":  strconv.Itoa(p.Semester),
			"Exam":      string(p.ExamType),
			"College":   p.College,
			"Uploader":  p.UploaderName,
			"Downloads": strconv.Itoa(p.Downloads),
			"Uploaded":  p.UploadedAt.UTC().Format("2006-01-02"),
		})
	}
	subtitle := fmt.Sprintf("%d approved papers", len(papers))
	return s.exports.Render(format, "papers", data, "Past Paper Catalogue", subtitle)
}

// objectKey prefers the stored path and falls back to parsing the public URL
// for rows written before paths were recorded.
func (s *PaperService) objectKey(path, publicURL string) string {
	if path != "" {
		return path
	}
	if publicURL == "" {
		return ""
	}
	key, err := s.storage.KeyFromURL(publicURL)
	if err != nil {
		s.logger.Warn("cannot derive object key from url", zap.String("url", publicURL), zap.Error(err))
		return ""
	}
	return key
}

func (s *PaperService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, "papers")
}

func paperListKey(filter models.PaperFilter, gen int64) string {
	raw := fmt.Sprintf("%d|%s|%s|%s|%s|%d", filter.Semester, filter.ExamType, strings.ToLower(filter.College),
		strings.ToLower(filter.Subject), strings.ToLower(filter.Search), filter.Limit)
	return cache.Key("papers", "list", strconv.FormatInt(gen, 10), cache.Digest(raw))
}

// paginate slices rows into the requested page.
func paginate[T any](rows []T, page, pageSize, defaultSize int) ([]T, *models.Pagination) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = defaultSize
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > len(rows) {
		start = len(rows)
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], models.NewPagination(page, pageSize, len(rows))
}

func signedLink(signer downloadSigner, apiPrefix, resourceID, key string) (string, time.Time, error) {
	token, expiresAt, err := signer.Generate(resourceID, key)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	link := fmt.Sprintf("%s/files/download?token=%s", strings.TrimRight(apiPrefix, "/"), url.QueryEscape(token))
	return link, expiresAt, nil
}
