package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/DOYOUNG-0314/kissingyou/internal/auth"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotEphemeral       = errors.New("user is not a guest")
)

const uniqueViolation = "23505"

// translateErr maps driver errors onto the package's sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

// Users is the Postgres-backed user directory.
type Users struct {
	DB *pgxpool.Pool
}

func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{DB: pool}
}

// CreateUser assigns an id if missing, hashes the password and inserts the row.
// Guests may have an empty email and password.
func (s *Users) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	if user.Password != "" {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}

	q := `INSERT INTO users (id, email, password, username, avatar_url, is_ephemeral, is_admin)
	      VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`

	err := pgx.BeginTxFunc(ctx, s.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Email, user.Password, user.Username,
			user.AvatarURL, user.IsEphemeral, user.IsAdmin,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateErr(err))
	}
	return nil
}

const selectUser = `
	SELECT id, COALESCE(email, ''), password, username, avatar_url, is_ephemeral, is_admin
	FROM users
`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Username, &u.AvatarURL, &u.IsEphemeral, &u.IsAdmin)
	if err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

func (s *Users) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.DB.QueryRow(ctx, selectUser+`WHERE email=$1`, email))
}

func (s *Users) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.DB.QueryRow(ctx, selectUser+`WHERE id=$1`, id))
}

// AuthenticateUser checks email and password and returns the account.
func (s *Users) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ClaimGuest turns a guest into a full account with the given credentials.
func (s *Users) ClaimGuest(ctx context.Context, id uuid.UUID, email, password, username string) (*models.User, error) {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	q := `UPDATE users
	      SET email = $1, password = $2, username = COALESCE(NULLIF($3, ''), username), is_ephemeral = FALSE
	      WHERE id = $4 AND is_ephemeral
	      RETURNING id, COALESCE(email, ''), password, username, avatar_url, is_ephemeral, is_admin`

	var user *models.User
	err = pgx.BeginTxFunc(ctx, s.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		u, scanErr := scanUser(tx.QueryRow(ctx, q, email, hashed, username, id))
		if errors.Is(scanErr, ErrUserNotFound) {
			return ErrNotEphemeral
		}
		user = u
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim guest: %w", translateErr(err))
	}
	return user, nil
}
