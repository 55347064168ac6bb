package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgsphere/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, COALESCE(phone,''), created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// RegisterParams holds the fields persisted at registration. Password must
// already be hashed.
type RegisterParams struct {
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Phone        string
	OrgName      string
}

// Register creates the user, their default organisation, and the membership
// linking them, in a single transaction. A duplicate email rolls everything
// back and returns models.ErrDuplicateEmail.
func (r *Repository) Register(ctx context.Context, p RegisterParams) (*models.User, *models.Organisation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	const insertUser = `INSERT INTO users (first_name, last_name, email, password_hash, phone)
		VALUES ($1, $2, $3, $4, NULLIF($5,''))
		RETURNING ` + userColumns
	user, err := scanUser(tx.QueryRow(ctx, insertUser, p.FirstName, p.LastName, p.Email, p.PasswordHash, p.Phone))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, models.ErrDuplicateEmail
		}
		return nil, nil, err
	}

	const insertOrg = `INSERT INTO organisations (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, COALESCE(description,''), owner_id, created_at, updated_at`
	var org models.Organisation
	err = tx.QueryRow(ctx, insertOrg, p.OrgName, user.ID).
		Scan(&org.ID, &org.Name, &org.Description, &org.OwnerID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, nil, err
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO organisation_users (organisation_id, user_id) VALUES ($1, $2)`,
		org.ID, user.ID); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return user, &org, nil
}

// SharesOrganisation reports whether two users own or belong to at least one
// common organisation.
func (r *Repository) SharesOrganisation(ctx context.Context, a, b uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM (
			SELECT organisation_id FROM organisation_users WHERE user_id = $1
			UNION
			SELECT id FROM organisations WHERE owner_id = $1
		) x
		JOIN (
			SELECT organisation_id FROM organisation_users WHERE user_id = $2
			UNION
			SELECT id FROM organisations WHERE owner_id = $2
		) y ON x.organisation_id = y.organisation_id
	)`
	var shares bool
	if err := r.pool.QueryRow(ctx, q, a, b).Scan(&shares); err != nil {
		return false, err
	}
	return shares, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
