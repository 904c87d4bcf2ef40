package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// uniqueViolation is the PostgreSQL error code raised when a unique index
// rejects a duplicate username or email.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// invalidTextRepresentation is raised when a value cannot be cast to its
// column type, typically a malformed uuid in an id position.
const invalidTextRepresentation = "22P02"

func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return fmt.Errorf("%w: malformed id", common.ErrorInvalidArgument)
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, email, password_hash, avatar_url, bio)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.AvatarURL, user.Bio).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, dbError(err)
	}

	return user, nil
}

const userColumns = `id::text, username, email, password_hash, avatar_url, bio, is_private, created_at, updated_at`

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.AvatarURL, &user.Bio, &user.IsPrivate, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, dbError(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1::uuid`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1::uuid)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, dbError(err)
	}
	return exists, nil
}

func (r *PostgresRepository) SetPrivacy(ctx context.Context, id string, isPrivate bool) error {
	query := `UPDATE users SET is_private = $2, updated_at = now() WHERE id = $1::uuid`
	res, err := r.db.ExecContext(ctx, query, id, isPrivate)
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) Refs(ctx context.Context, ids []string) ([]models.UserRef, error) {
	if len(ids) == 0 {
		return []models.UserRef{}, nil
	}
	query :=
		`SELECT id::text, username, avatar_url FROM users
		 WHERE id = ANY($1::uuid[])
		 `
	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	return scanRefs(rows)
}

func (r *PostgresRepository) Followers(ctx context.Context, id string) ([]models.UserRef, error) {
	query :=
		`SELECT u.id::text, u.username, u.avatar_url
		 FROM follows f JOIN users u ON u.id = f.follower_id
		 WHERE f.followee_id = $1::uuid
		 ORDER BY f.created_at
		 `
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	return scanRefs(rows)
}

func (r *PostgresRepository) Following(ctx context.Context, id string) ([]models.UserRef, error) {
	query :=
		`SELECT u.id::text, u.username, u.avatar_url
		 FROM follows f JOIN users u ON u.id = f.followee_id
		 WHERE f.follower_id = $1::uuid
		 ORDER BY f.created_at
		 `
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()
	return scanRefs(rows)
}

func (r *PostgresRepository) FollowerCount(ctx context.Context, id string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM follows WHERE followee_id = $1::uuid`, id)
}

func (r *PostgresRepository) FollowingCount(ctx context.Context, id string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM follows WHERE follower_id = $1::uuid`, id)
}

func (r *PostgresRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var following bool
	query := `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1::uuid AND followee_id = $2::uuid)`
	if err := r.db.QueryRowContext(ctx, query, followerID, followeeID).Scan(&following); err != nil {
		return false, dbError(err)
	}
	return following, nil
}

func (r *PostgresRepository) AddFollow(ctx context.Context, followerID, followeeID string) error {
	query :=
		`INSERT INTO follows (follower_id, followee_id)
		 VALUES ($1::uuid, $2::uuid)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING
		 `
	if _, err := r.db.ExecContext(ctx, query, followerID, followeeID); err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepository) RemoveFollow(ctx context.Context, followerID, followeeID string) error {
	query := `DELETE FROM follows WHERE follower_id = $1::uuid AND followee_id = $2::uuid`
	if _, err := r.db.ExecContext(ctx, query, followerID, followeeID); err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

func scanRefs(rows *sql.Rows) ([]models.UserRef, error) {
	refs := []models.UserRef{}
	for rows.Next() {
		var ref models.UserRef
		if err := rows.Scan(&ref.ID, &ref.Username, &ref.AvatarURL); err != nil {
			return nil, dbError(err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return refs, nil
}
