package organisations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgsphere/backend/internal/models"
)

// Repository handles organisation and membership persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organisations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, COALESCE(description,''), owner_id, created_at, updated_at`

func scanOrg(row pgx.Row) (*models.Organisation, error) {
	var o models.Organisation
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create persists the organisation and the creator's membership row in a
// single transaction, filling in ID and timestamps.
func (r *Repository) Create(ctx context.Context, org *models.Organisation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO organisations (name, description, owner_id)
		VALUES ($1, NULLIF($2,''), $3)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, q, org.Name, org.Description, org.OwnerID).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO organisation_users (organisation_id, user_id) VALUES ($1, $2)`,
		org.ID, org.OwnerID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID returns an organisation by ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organisation, error) {
	return scanOrg(r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organisations WHERE id = $1`, id))
}

// ListForUser returns every organisation the user owns or belongs to, without
// duplicates, oldest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organisation, error) {
	const q = `SELECT ` + orgColumns + ` FROM organisations o
		WHERE o.owner_id = $1
		   OR EXISTS (
			SELECT 1 FROM organisation_users ou
			WHERE ou.organisation_id = o.id AND ou.user_id = $1
		   )
		ORDER BY o.created_at`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organisation
	for rows.Next() {
		var o models.Organisation
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// AddMember records the user's membership. The unique index on
// (organisation_id, user_id) makes re-adding a member fail with
// models.ErrAlreadyMember instead of duplicating the relation, even under
// concurrent requests.
func (r *Repository) AddMember(ctx context.Context, orgID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO organisation_users (organisation_id, user_id) VALUES ($1, $2)`,
		orgID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrAlreadyMember
		}
		return err
	}
	return nil
}

// IsMemberOrOwner reports whether the user owns or belongs to the organisation.
func (r *Repository) IsMemberOrOwner(ctx context.Context, orgID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM organisations WHERE id = $1 AND owner_id = $2
		UNION
		SELECT 1 FROM organisation_users WHERE organisation_id = $1 AND user_id = $2
	)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
