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

const noticeColumns = `id, title, category, file_name, file_size, size_bytes, file_url, file_path, created_by, created_at`

// NoticeRepository persists notice metadata.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository constructs the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// Create stores an uploaded notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notices (id, title, category, file_name, file_size, size_bytes, file_url, file_path, created_by, created_at)
	VALUES (:id, :title, :category, :file_name, :file_size, :size_bytes, :file_url, :file_path, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// GetByID retrieves one notice.
func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	query := `SELECT ` + noticeColumns + ` FROM notices WHERE id = $1`
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get notice: %w", err)
	}
	return &notice, nil
}

// List returns notices newest first.
func (r *NoticeRepository) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + noticeColumns + ` FROM notices`)
	args := make([]interface{}, 0, 2)
	conditions := make([]string, 0, 2)

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

// Delete removes a notice and returns the deleted row.
func (r *NoticeRepository) Delete(ctx context.Context, id string) (*models.Notice, error) {
	query := `DELETE FROM notices WHERE id = $1 RETURNING ` + noticeColumns
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("delete notice: %w", err)
	}
	return &notice, nil
}
