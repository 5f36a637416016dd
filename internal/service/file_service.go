package service

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

// DownloadFile is an opened stored object ready to stream. The caller closes File.
type DownloadFile struct {
	File        *os.File
	Name        string
	ContentType string
	ModTime     time.Time
}

// FileService redeems signed download tokens.
type FileService struct {
	storage objectStorage
	signer  downloadSigner
	logger  *zap.Logger
}

// NewFileService constructs FileService.
func NewFileService(storage objectStorage, signer downloadSigner, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{storage: storage, signer: signer, logger: logger}
}

// Open validates the token and opens the object it names.
func (s *FileService) Open(token string) (*DownloadFile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download token required")
	}
	resourceID, key, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "download link is invalid or expired")
	}

	file, err := s.storage.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file no longer exists")
		}
		s.logger.Warn("failed to open stored file", zap.String("resource_id", resourceID), zap.String("key", key), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file")
	}
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewind file")
	}

	return &DownloadFile{
		File:        file,
		Name:        displayName(key),
		ContentType: detected.String(),
		ModTime:     info.ModTime(),
	}, nil
}

// displayName drops the "<unix-ms>_" prefix Put keys carry.
func displayName(key string) string {
	base := path.Base(key)
	if i := strings.IndexByte(base, '_'); i > 0 && strings.Trim(base[:i], "0123456789") == "" {
		return base[i+1:]
	}
	return base
}
