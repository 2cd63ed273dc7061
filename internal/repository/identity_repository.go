package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/face-attendance-api/internal/models"
)

// IdentityRepository handles persistence for registered identities.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository constructs the repository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create inserts a new identity inside a transaction. The id comes from the
// table's sequence, so allocation is atomic under concurrent enrollments and
// strictly increasing. persist runs inside the transaction with the new id;
// if it fails the identity row is rolled back, keeping identity and first
// face sample all-or-nothing.
func (r *IdentityRepository) Create(ctx context.Context, ident *models.Identity, persist func(id int64) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}

	if ident.RegisteredAt.IsZero() {
		ident.RegisteredAt = time.Now().UTC()
	}
	if ident.Role == "" {
		ident.Role = models.DefaultRole
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO identities (name, phone, role, registered_at)
         VALUES ($1, $2, $3, $4)
         RETURNING id`,
		ident.Name, ident.Phone, ident.Role, ident.RegisteredAt)
	if err := row.Scan(&ident.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert identity: %w", err)
	}

	if persist != nil {
		if err := persist(ident.ID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment tx: %w", err)
	}
	return nil
}

// FindByID returns an identity or nil when the id is not registered.
func (r *IdentityRepository) FindByID(ctx context.Context, id int64) (*models.Identity, error) {
	var ident models.Identity
	err := r.db.GetContext(ctx, &ident,
		`SELECT id, name, phone, role, registered_at FROM identities WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return &ident, nil
}

// List returns identities matching the filter with a total count.
func (r *IdentityRepository) List(ctx context.Context, filter models.IdentityFilter) ([]models.Identity, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, phone, role, registered_at
        FROM identities WHERE %s
        ORDER BY id ASC
        LIMIT %d OFFSET %d`, whereClause, size, offset)

	var rows []models.Identity
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM identities WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}
	return rows, total, nil
}
