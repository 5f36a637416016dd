package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyhub-api/internal/models"
)

const paperColumns = `id, title, subject, semester, exam_type, college, uploaded_by, uploader_name, downloads, approved, file_url, file_path, mime_type, size_bytes, uploaded_at, updated_at`

const maxPaperListLimit = 1000

// PaperRepository persists paper metadata.
type PaperRepository struct {
	db *sqlx.DB
}

// NewPaperRepository constructs the repository.
func NewPaperRepository(db *sqlx.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

// Create inserts a newly submitted paper.
func (r *PaperRepository) Create(ctx context.Context, paper *models.Paper) error {
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if paper.UploadedAt.IsZero() {
		paper.UploadedAt = now
	}
	paper.UpdatedAt = paper.UploadedAt
	const query = `INSERT INTO papers
	(id, title, subject, semester, exam_type, college, uploaded_by, uploader_name, downloads, approved, file_url, file_path, mime_type, size_bytes, uploaded_at, updated_at)
	VALUES (:id, :title, :subject, :semester, :exam_type, :college, :uploaded_by, :uploader_name, :downloads, :approved, :file_url, :file_path, :mime_type, :size_bytes, :uploaded_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, paper); err != nil {
		return fmt.Errorf("create paper: %w", err)
	}
	return nil
}

// GetByID retrieves one paper regardless of approval state.
func (r *PaperRepository) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`
	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}
	return &paper, nil
}

// List returns papers newest first. Visibility is applied in SQL: unless
// IncludeAll is set, only approved rows plus the viewer's own are returned.
func (r *PaperRepository) List(ctx context.Context, filter models.PaperFilter) ([]models.Paper, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + paperColumns + ` FROM papers`)
	args := make([]interface{}, 0, 7)
	conditions := make([]string, 0, 7)

	switch {
	case filter.PendingOnly:
		conditions = append(conditions, "approved = FALSE")
	case filter.ApprovedOnly:
		conditions = append(conditions, "approved = TRUE")
	case filter.IncludeAll:
	case filter.ViewerID != "":
		args = append(args, filter.ViewerID)
		conditions = append(conditions, fmt.Sprintf("(approved = TRUE OR uploaded_by = $%d)", len(args)))
	default:
		conditions = append(conditions, "approved = TRUE")
	}
	if filter.Semester > 0 {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.ExamType != "" {
		args = append(args, filter.ExamType)
		conditions = append(conditions, fmt.Sprintf("exam_type = $%d", len(args)))
	}
	if filter.College != "" {
		args = append(args, filter.College)
		conditions = append(conditions, fmt.Sprintf("college = $%d", len(args)))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		conditions = append(conditions, fmt.Sprintf("subject = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.UploadedBy != "" {
		args = append(args, filter.UploadedBy)
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	if filter.PendingOnly {
		builder.WriteString(" ORDER BY uploaded_at ASC")
	} else {
		builder.WriteString(" ORDER BY uploaded_at DESC")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > maxPaperListLimit {
		limit = maxPaperListLimit
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var papers []models.Paper
	if err := r.db.SelectContext(ctx, &papers, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	return papers, nil
}

// Approve flips a pending paper to approved. The update is conditional on the
// row still being pending, so changed is false when it was already approved.
// A missing paper yields sql.ErrNoRows.
func (r *PaperRepository) Approve(ctx context.Context, id string, at time.Time) (*models.Paper, bool, error) {
	query := `UPDATE papers SET approved = TRUE, updated_at = $2 WHERE id = $1 AND approved = FALSE RETURNING ` + paperColumns
	var paper models.Paper
	err := r.db.GetContext(ctx, &paper, query, id, at)
	if err == nil {
		return &paper, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("approve paper: %w", err)
	}
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Delete removes a paper and returns the deleted row.
func (r *PaperRepository) Delete(ctx context.Context, id string) (*models.Paper, error) {
	query := `DELETE FROM papers WHERE id = $1 RETURNING ` + paperColumns
	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete paper: %w", err)
	}
	return &paper, nil
}

// IncrementDownloads bumps the counter in place and returns the new value.
func (r *PaperRepository) IncrementDownloads(ctx context.Context, id string) (int, error) {
	const query = `UPDATE papers SET downloads = downloads + 1 WHERE id = $1 RETURNING downloads`
	var downloads int
	if err := r.db.GetContext(ctx, &downloads, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, fmt.Errorf("increment downloads: %w", err)
	}
	return downloads, nil
}

// Stats aggregates moderation counters.
func (r *PaperRepository) Stats(ctx context.Context) (*models.PaperStats, error) {
	const query = `SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE approved) AS approved,
       COUNT(*) FILTER (WHERE NOT approved) AS pending,
       COALESCE(SUM(downloads), 0) AS total_downloads
	FROM papers`
	var stats models.PaperStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("paper stats: %w", err)
	}
	return &stats, nil
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
