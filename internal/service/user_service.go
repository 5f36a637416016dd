package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/dto"
	"github.com/noah-isme/studyhub-api/internal/models"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id, url, path string) error
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type cleanupScheduler interface {
	Schedule(key, reason string)
}

// UserServiceConfig bounds avatar uploads.
type UserServiceConfig struct {
	MaxAvatarSize int64
}

// UserService handles profile edits and admin user management.
type UserService struct {
	repo      userRepository
	storage   objectStorage
	cleanup   cleanupScheduler
	validator *validator.Validate
	logger    *zap.Logger
	avatars   uploadPolicy
	now       func() time.Time
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, storage objectStorage, cleanup cleanupScheduler, validate *validator.Validate, logger *zap.Logger, cfg UserServiceConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxAvatarSize <= 0 {
		cfg.MaxAvatarSize = 2 * 1024 * 1024
	}
	return &UserService{
		repo:      repo,
		storage:   storage,
		cleanup:   cleanup,
		validator: validate,
		logger:    logger,
		avatars:   uploadPolicy{prefix: "avatars", maxSize: cfg.MaxAvatarSize, allowed: avatarTypes},
		now:       time.Now,
	}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return users, models.NewPagination(page, pageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile changes the caller's name, semester and college. The role is
// never touched here.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.JWTClaims, req dto.UpdateProfileRequest) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	user, err := s.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "full name cannot be empty")
		}
		user.FullName = name
	}
	if req.Semester != nil {
		user.Semester = *req.Semester
	}
	if req.College != nil {
		user.College = strings.TrimSpace(*req.College)
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionProfileUpdate, "users", user.ID, map[string]interface{}{
		"full_name": user.FullName, "semester": user.Semester, "college": user.College,
	})
	return user, nil
}

// UploadAvatar stores a new profile image and removes the previous one.
func (s *UserService) UploadAvatar(ctx context.Context, actor *models.JWTClaims, upload FileUpload) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, err := s.avatars.inspect(upload); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.Put(s.avatars.objectKey(upload.Filename, s.now()), upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}
	url := s.storage.PublicURL(key)
	if err := s.repo.UpdateAvatar(ctx, user.ID, url, key); err != nil {
		if delErr := s.storage.Delete(key); delErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", zap.String("key", key), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save avatar")
	}

	previous := user.AvatarPath
	if previous == "" && user.AvatarURL != "" {
		if derived, err := s.storage.KeyFromURL(user.AvatarURL); err == nil {
			previous = derived
		}
	}
	if previous != "" && previous != key && s.cleanup != nil {
		s.cleanup.Schedule(previous, "avatar replaced")
	}

	user.AvatarURL = url
	user.AvatarPath = key
	return user, nil
}

// SetRole changes another user's role.
func (s *UserService) SetRole(ctx context.Context, actor *models.JWTClaims, userID string, req dto.SetRoleRequest) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if userID == actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admins cannot change their own role")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == req.Role {
		return user, nil
	}
	if err := s.repo.UpdateRole(ctx, userID, req.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	recordAudit(ctx, s.repo, s.logger, actor, models.AuditActionRoleChange, "users", userID, map[string]interface{}{
		"from": user.Role, "to": req.Role,
	})
	user.Role = req.Role
	return user, nil
}
