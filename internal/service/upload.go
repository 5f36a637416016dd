package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

type objectStorage interface {
	Put(key string, r io.Reader) (string, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	PublicURL(key string) string
	KeyFromURL(raw string) (string, error)
}

type downloadSigner interface {
	Generate(resourceID, key string) (string, time.Time, error)
	Parse(token string) (resourceID, key string, expiresAt time.Time, err error)
}

// FileUpload carries an uploaded file. Content must be seekable so the type
// can be sniffed before the bytes are stored.
type FileUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// uploadPolicy restricts which files may land under a storage prefix.
// allowed maps a lower-case extension to the MIME type its bytes must carry.
type uploadPolicy struct {
	prefix  string
	maxSize int64
	allowed map[string]string
}

var (
	paperTypes  = map[string]string{".pdf": "application/pdf", ".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png"}
	noticeTypes = map[string]string{".pdf": "application/pdf"}
	avatarTypes = map[string]string{".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png"}
)

// inspect validates the upload without touching storage and returns the
// detected MIME type.
func (p uploadPolicy) inspect(upload FileUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 || strings.TrimSpace(upload.Filename) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if p.maxSize > 0 && upload.Size > p.maxSize {
		return "", appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds %d bytes limit", p.maxSize))
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	expected, ok := p.allowed[ext]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, "file type not allowed: "+allowedList(p.allowed))
	}
	detected, err := mimetype.DetectReader(upload.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if !detected.Is(expected) {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("file content is %s, expected %s", detected.String(), expected))
	}
	return expected, nil
}

// objectKey builds "<prefix>/<unix-ms>_<sanitised name>".
func (p uploadPolicy) objectKey(original string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", p.prefix, now.UnixMilli(), sanitizeFilename(original))
}

func sanitizeFilename(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range stem {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	clean := strings.Trim(b.String(), "_.")
	if clean == "" {
		clean = "file"
	}
	if len(clean) > 100 {
		clean = clean[:100]
	}
	return clean + ext
}

func allowedList(allowed map[string]string) string {
	exts := make([]string, 0, len(allowed))
	for _, ext := range []string{".pdf", ".jpeg", ".jpg", ".png"} {
		if _, ok := allowed[ext]; ok {
			exts = append(exts, strings.TrimPrefix(ext, "."))
		}
	}
	return strings.Join(exts, ", ")
}

// humanSize renders a byte count the way notice boards show it, e.g. "1.2 MB".
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
