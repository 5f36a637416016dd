package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/pkg/cache"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type noticeStore interface {
	Create(ctx context.Context, notice *models.Notice) error
	GetByID(ctx context.Context, id string) (*models.Notice, error)
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, error)
	Delete(ctx context.Context, id string) (*models.Notice, error)
}

// NoticeServiceConfig bounds notice uploads.
type NoticeServiceConfig struct {
	MaxFileSize int64
	CacheTTL    time.Duration
	APIPrefix   string
}

// NoticeService publishes admin notices as PDFs.
type NoticeService struct {
	repo      noticeStore
	storage   objectStorage
	signer    downloadSigner
	cleanup   cleanupScheduler
	cache     *CacheService
	metrics   *MetricsService
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cfg       NoticeServiceConfig
	policy    uploadPolicy
	now       func() time.Time
}

// NewNoticeService constructs the service.
func NewNoticeService(repo noticeStore, storage objectStorage, signer downloadSigner, cleanup cleanupScheduler, cache *CacheService, metrics *MetricsService, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg NoticeServiceConfig) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &NoticeService{
		repo:      repo,
		storage:   storage,
		signer:    signer,
		cleanup:   cleanup,
		cache:     cache,
		metrics:   metrics,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		policy:    uploadPolicy{prefix: "notices", maxSize: cfg.MaxFileSize, allowed: noticeTypes},
		now:       time.Now,
	}
}

// Upload stores a PDF notice. It is visible immediately.
func (s *NoticeService) Upload(ctx context.Context, actor *models.JWTClaims, req dto.UploadNoticeRequest, upload FileUpload) (*models.Notice, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice details")
	}
	if _, err := s.policy.inspect(upload); err != nil {
		return nil, err
	}

	key, err := s.storage.Put(s.policy.objectKey(upload.Filename, s.now()), upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store notice file")
	}
	notice := &models.Notice{
		Title:     req.Title,
		Category:  req.Category,
		FileName:  filepath.Base(strings.ReplaceAll(upload.Filename, "\\", "/")),
		FileSize:  humanSize(upload.Size),
		SizeBytes: upload.Size,
		FileURL:   s.storage.PublicURL(key),
		FilePath:  key,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, notice); err != nil {
		if delErr := s.storage.Delete(key); delErr != nil {
			s.logger.Warn("failed to remove orphaned notice file", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save notice")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionNoticeUpload, "notices", notice.ID, map[string]interface{}{
		"title": notice.Title, "category": notice.Category,
	})
	s.invalidate(ctx)
	return notice, nil
}

// List returns notices newest first. The boolean reports a cache hit.
func (s *NoticeService) List(ctx context.Context, query dto.NoticeQuery) ([]models.Notice, bool, error) {
	category := models.NoticeCategory(strings.TrimSpace(query.Category))
	if category != "" && !category.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown notice category")
	}
	filter := models.NoticeFilter{Category: category, Search: strings.TrimSpace(query.Search)}

	store := s.cache
	gen, err := store.Generation(ctx, "notices")
	if err != nil {
		store = nil
	}
	key := cache.Key("notices", "list", strconv.FormatInt(gen, 10), string(filter.Category), strings.ToLower(filter.Search))
	return remember(ctx, store, key, s.cfg.CacheTTL, func() ([]models.Notice, error) {
		notices, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
		}
		if notices == nil {
			notices = []models.Notice{}
		}
		return notices, nil
	})
}

// Download returns a signed link for a signed-in user.
func (s *NoticeService) Download(ctx context.Context, actor *models.JWTClaims, id string) (*dto.DownloadResponse, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login required to download notices")
	}
	notice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	key := notice.FilePath
	if key == "" {
		if key, err = s.storage.KeyFromURL(notice.FileURL); err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice file not found")
		}
	}
	link, expiresAt, err := signedLink(s.signer, s.cfg.APIPrefix, notice.ID, key)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDownload("notice")
	return &dto.DownloadResponse{ID: notice.ID, DownloadURL: link, ExpiresAt: expiresAt}, nil
}

// Delete removes a notice and queues removal of its file.
func (s *NoticeService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	notice, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}
	key := notice.FilePath
	if key == "" {
		if derived, err := s.storage.KeyFromURL(notice.FileURL); err == nil {
			key = derived
		}
	}
	if key != "" && s.cleanup != nil {
		s.cleanup.Schedule(key, "notice deleted")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionNoticeDelete, "notices", notice.ID, map[string]interface{}{"title": notice.Title})
	s.invalidate(ctx)
	return nil
}

func (s *NoticeService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, "notices")
}
