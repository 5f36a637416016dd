package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type collegeRepository interface {
	List(ctx context.Context, filter models.CollegeFilter) ([]models.College, int, error)
	FindByID(ctx context.Context, id string) (*models.College, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, college *models.College) error
	Update(ctx context.Context, college *models.College) error
	Delete(ctx context.Context, id string) error
}

// CollegeService manages the college directory.
type CollegeService struct {
	repo      collegeRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCollegeService constructs CollegeService.
func NewCollegeService(repo collegeRepository, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *CollegeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollegeService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns colleges with pagination metadata.
func (s *CollegeService) List(ctx context.Context, query dto.CollegeQuery) ([]models.College, *models.Pagination, error) {
	collegeType := models.CollegeType(strings.ToLower(strings.TrimSpace(query.Type)))
	switch collegeType {
	case "", models.CollegeTypePublic, models.CollegeTypePrivate, models.CollegeTypeCommunity:
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown college type")
	}
	filter := models.CollegeFilter{
		Search:      strings.TrimSpace(query.Search),
		Affiliation: strings.TrimSpace(query.Affiliation),
		Type:        collegeType,
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	colleges, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	if colleges == nil {
		colleges = []models.College{}
	}
	return colleges, models.NewPagination(page, size, total), nil
}

// Get returns one college.
func (s *CollegeService) Get(ctx context.Context, id string) (*models.College, error) {
	college, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	return college, nil
}

// Create adds a directory entry.
func (s *CollegeService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CollegeRequest) (*models.College, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	req = normalizeCollegeRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid college payload")
	}
	if err := s.ensureUniqueName(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	college := &models.College{}
	applyCollegeRequest(college, req)
	if err := s.repo.Create(ctx, college); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create college")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCollegeCreate, "colleges", college.ID, map[string]interface{}{"name": college.Name})
	return college, nil
}

// Update replaces a directory entry.
func (s *CollegeService) Update(ctx context.Context, actor *models.JWTClaims, id string, req dto.CollegeRequest) (*models.College, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	req = normalizeCollegeRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid college payload")
	}
	college, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}

	applyCollegeRequest(college, req)
	if err := s.repo.Update(ctx, college); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update college")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCollegeUpdate, "colleges", college.ID, map[string]interface{}{"name": college.Name})
	return college, nil
}

// Delete removes a directory entry.
func (s *CollegeService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete college")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionCollegeDelete, "colleges", id, nil)
	return nil
}

func (s *CollegeService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check college name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "college name already exists")
	}
	return nil
}

func normalizeCollegeRequest(req dto.CollegeRequest) dto.CollegeRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	req.Affiliation = strings.TrimSpace(req.Affiliation)
	req.Type = models.CollegeType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	req.Website = strings.TrimSpace(req.Website)
	req.Phone = strings.TrimSpace(req.Phone)
	programs := make([]string, 0, len(req.Programs))
	seen := make(map[string]struct{}, len(req.Programs))
	for _, p := range req.Programs {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if _, dup := seen[key]; dup || p == "" {
			continue
		}
		seen[key] = struct{}{}
		programs = append(programs, p)
	}
	req.Programs = programs
	return req
}

func applyCollegeRequest(college *models.College, req dto.CollegeRequest) {
	college.Name = req.Name
	college.Location = req.Location
	college.Affiliation = req.Affiliation
	college.Type = req.Type
	college.Website = req.Website
	college.Phone = req.Phone
	college.Programs = req.Programs
}
