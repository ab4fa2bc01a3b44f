package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no identity exists for the key.
	ErrNotFound = errors.New("identity not found")

	// ErrConflict indicates an identity already exists for the key.
	ErrConflict = errors.New("identity already exists")
)

// Repository persists identities. The identity key (normalized phone) is
// unique; Create fails with ErrConflict on a duplicate.
type Repository interface {
	Create(ctx context.Context, ident Identity) error
	FindByKey(ctx context.Context, key string) (Identity, error)
	UpdatePassword(ctx context.Context, key string, hash []byte) error
	UpdateLastLogin(ctx context.Context, key string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new identity.
func (r *PostgresRepository) Create(ctx context.Context, ident Identity) error {
	id, err := uuid.Parse(ident.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO identities (id, phone, full_name, password_hash, phone_verified, status, role, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, ident.Key, ident.FullName, ident.PasswordHash, ident.PhoneVerified, ident.Status, ident.Role, ident.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

// FindByKey fetches an identity by its normalized phone number.
func (r *PostgresRepository) FindByKey(ctx context.Context, key string) (Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT id, phone, full_name, password_hash, phone_verified, status, role, created_at, last_login
        FROM identities WHERE phone = $1`, key)

	var (
		id        uuid.UUID
		createdAt time.Time
		lastLogin *time.Time
		ident     Identity
	)
	if err := row.Scan(&id, &ident.Key, &ident.FullName, &ident.PasswordHash, &ident.PhoneVerified, &ident.Status, &ident.Role, &createdAt, &lastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	ident.ID = id.String()
	ident.CreatedAt = createdAt.UTC()
	if lastLogin != nil {
		ident.LastLogin = lastLogin.UTC()
	}
	return ident, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, key string, hash []byte) error {
	cmd, err := r.db.Exec(ctx, `UPDATE identities SET password_hash = $1 WHERE phone = $2`, hash, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastLogin stamps the most recent successful authentication.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, key string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE identities SET last_login = $1 WHERE phone = $2`, at.UTC(), key)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
