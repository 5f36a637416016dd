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

const collegeColumns = `id, name, location, affiliation, type, website, phone, programs, created_at, updated_at`

// CollegeRepository provides access to the college directory.
type CollegeRepository struct {
	db *sqlx.DB
}

// NewCollegeRepository constructs the repository.
func NewCollegeRepository(db *sqlx.DB) *CollegeRepository {
	return &CollegeRepository{db: db}
}

// List returns a page of colleges ordered by name with the total count.
func (r *CollegeRepository) List(ctx context.Context, filter models.CollegeFilter) ([]models.College, int, error) {
	baseQuery := `FROM colleges WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR location ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}
	if filter.Affiliation != "" {
		conditions = append(conditions, fmt.Sprintf("affiliation = $%d", len(args)+1))
		args = append(args, filter.Affiliation)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", collegeColumns, baseQuery, pageSize, offset)
	var colleges []models.College
	if err := r.db.SelectContext(ctx, &colleges, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list colleges: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count colleges: %w", err)
	}
	return colleges, total, nil
}

// FindByID returns one college.
func (r *CollegeRepository) FindByID(ctx context.Context, id string) (*models.College, error) {
	query := `SELECT ` + collegeColumns + ` FROM colleges WHERE id = $1`
	var college models.College
	if err := r.db.GetContext(ctx, &college, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find college: %w", err)
	}
	return &college, nil
}

// ExistsByName reports whether another college already uses the name.
func (r *CollegeRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM colleges WHERE LOWER(name) = LOWER($1)`
	args := []interface{}{name}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += `)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check college name: %w", err)
	}
	return exists, nil
}

// Create inserts a college.
func (r *CollegeRepository) Create(ctx context.Context, college *models.College) error {
	if college.ID == "" {
		college.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	college.CreatedAt = now
	college.UpdatedAt = now
	if college.Programs == nil {
		college.Programs = []string{}
	}
	const query = `INSERT INTO colleges (id, name, location, affiliation, type, website, phone, programs, created_at, updated_at)
	VALUES (:id, :name, :location, :affiliation, :type, :website, :phone, :programs, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, college); err != nil {
		return fmt.Errorf("create college: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a college.
func (r *CollegeRepository) Update(ctx context.Context, college *models.College) error {
	college.UpdatedAt = time.Now().UTC()
	if college.Programs == nil {
		college.Programs = []string{}
	}
	const query = `UPDATE colleges SET name = :name, location = :location, affiliation = :affiliation, type = :type,
	website = :website, phone = :phone, programs = :programs, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, college)
	if err != nil {
		return fmt.Errorf("update college: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a college.
func (r *CollegeRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM colleges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete college: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check college delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
