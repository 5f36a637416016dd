package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studyhub-api/internal/models"
	"github.com/noah-isme/studyhub-api/pkg/cache"
	appErrors "github.com/noah-isme/studyhub-api/pkg/errors"
)

const noteExt = ".html"

var chapterIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NoteServiceConfig locates the static notes tree.
type NoteServiceConfig struct {
	Dir       string
	URLPrefix string
	CacheTTL  time.Duration
}

// NoteService resolves and reads chapter fragments laid out as
// "Semester <n>/<subject>/<chapterId>.html" under the notes root.
type NoteService struct {
	root   string
	cache  *CacheService
	logger *zap.Logger
	cfg    NoteServiceConfig
}

// NewNoteService constructs the service.
func NewNoteService(cache *CacheService, logger *zap.Logger, cfg NoteServiceConfig) *NoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dir == "" {
		cfg.Dir = "./public/notes"
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/notes"
	}
	root, err := filepath.Abs(cfg.Dir)
	if err != nil {
		root = filepath.Clean(cfg.Dir)
	}
	return &NoteService{root: root, cache: cache, logger: logger, cfg: cfg}
}

// Root returns the absolute notes directory.
func (s *NoteService) Root() string {
	return s.root
}

// Resolve validates the coordinates and returns the chapter's relative path
// and public URL. It does not check that the file exists.
func (s *NoteService) Resolve(semester int, subject, chapterID string) (*models.NoteRef, error) {
	if err := validateSemester(semester); err != nil {
		return nil, err
	}
	subject, err := cleanSubject(subject)
	if err != nil {
		return nil, err
	}
	chapterID = strings.TrimSpace(chapterID)
	if !chapterIDPattern.MatchString(chapterID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "chapter id may contain only letters, digits, '-' and '_'")
	}
	semesterDir := semesterDirName(semester)
	rel := semesterDir + "/" + subject + "/" + chapterID + noteExt
	if _, err := s.absolute(rel); err != nil {
		return nil, err
	}
	publicURL := strings.TrimRight(s.cfg.URLPrefix, "/") + "/" + url.PathEscape(semesterDir) + "/" + url.PathEscape(subject) + "/" + chapterID + noteExt
	return &models.NoteRef{Semester: semester, Subject: subject, ChapterID: chapterID, Path: rel, URL: publicURL}, nil
}

// Exists reports whether the chapter file is present.
func (s *NoteService) Exists(ref *models.NoteRef) (bool, error) {
	abs, err := s.absolute(ref.Path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to probe note")
	}
	return !info.IsDir(), nil
}

// Get returns the chapter HTML fragment as stored.
func (s *NoteService) Get(semester int, subject, chapterID string) ([]byte, *models.NoteRef, error) {
	ref, err := s.Resolve(semester, subject, chapterID)
	if err != nil {
		return nil, nil, err
	}
	abs, err := s.absolute(ref.Path)
	if err != nil {
		return nil, nil, err
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "chapter not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read note")
	}
	return content, ref, nil
}

// ListSubjects returns the subjects with notes for a semester.
func (s *NoteService) ListSubjects(ctx context.Context, semester int) ([]models.NoteSubject, bool, error) {
	if err := validateSemester(semester); err != nil {
		return nil, false, err
	}
	key := cache.Key("notes", "subjects", strconv.Itoa(semester))
	return remember(ctx, s.cache, key, s.cfg.CacheTTL, func() ([]models.NoteSubject, error) {
		entries, err := os.ReadDir(filepath.Join(s.root, semesterDirName(semester)))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
		}
		subjects := make([]models.NoteSubject, 0, len(entries))
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			subjects = append(subjects, models.NoteSubject{Semester: semester, Name: entry.Name()})
		}
		sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
		return subjects, nil
	})
}

// ListChapters returns the chapter ids available for a subject.
func (s *NoteService) ListChapters(ctx context.Context, semester int, subject string) (*models.NoteSubject, bool, error) {
	if err := validateSemester(semester); err != nil {
		return nil, false, err
	}
	subject, err := cleanSubject(subject)
	if err != nil {
		return nil, false, err
	}
	key := cache.Key("notes", "chapters", strconv.Itoa(semester), strings.ToLower(subject))
	return remember(ctx, s.cache, key, s.cfg.CacheTTL, func() (*models.NoteSubject, error) {
		dir, err := s.absolute(semesterDirName(semester) + "/" + subject)
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list chapters")
		}
		result := &models.NoteSubject{Semester: semester, Name: subject, Chapters: []string{}}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, noteExt) {
				continue
			}
			if id := strings.TrimSuffix(name, noteExt); chapterIDPattern.MatchString(id) {
				result.Chapters = append(result.Chapters, id)
			}
		}
		sort.Strings(result.Chapters)
		return result, nil
	})
}

// absolute maps a slash separated relative path under the root and refuses
// anything that escapes it.
func (s *NoteService) absolute(rel string) (string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(rel))
	within, err := filepath.Rel(s.root, abs)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", appErrors.Clone(appErrors.ErrValidation, "path escapes notes directory")
	}
	return abs, nil
}

func semesterDirName(semester int) string {
	return fmt.Sprintf("Semester %d", semester)
}

func validateSemester(semester int) error {
	if semester < 1 || semester > 8 {
		return appErrors.Clone(appErrors.ErrValidation, "semester must be between 1 and 8")
	}
	return nil
}

func cleanSubject(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || len(subject) > 120 {
		return "", appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	if strings.ContainsAny(subject, `/\`) || strings.Contains(subject, "..") || strings.HasPrefix(subject, ".") {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid subject")
	}
	return subject, nil
}
