package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kuitang/yanote/internal/db"
	"github.com/kuitang/yanote/internal/obs"
)

// Errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be 1-150 letters, digits or @.+-_")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// MaxUsernameLength is the longest accepted username, in runes.
const MaxUsernameLength = 150

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// User represents a user account.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Identity returns the request identity of u.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) toUser() *User {
	return &User{ID: r.ID, Username: r.Username, CreatedAt: time.Unix(r.CreatedAt, 0).UTC()}
}

// RegisterParams is a submitted signup form.
type RegisterParams struct {
	Username        string
	Password        string
	PasswordConfirm string
}

// UserService handles user management operations.
type UserService struct {
	db     *db.DB
	hasher PasswordHasher
	clock  Clock
}

// NewUserService creates a new user service. A nil hasher selects Argon2id.
func NewUserService(database *db.DB, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = Argon2Hasher{}
	}
	return &UserService{
		db:     database,
		hasher: hasher,
		clock:  realClock{},
	}
}

// SetClock replaces the clock used by the service. Intended for testing.
func (s *UserService) SetClock(c Clock) {
	s.clock = c
}

// ValidateUsername checks the username shape without touching storage.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 || n > MaxUsernameLength || !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// Register creates a new account. The username is stored as given (after
// trimming) and must be unique.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (*User, error) {
	username := strings.TrimSpace(params.Username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if params.Password != params.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	if err := ValidatePasswordStrength(params.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	row := userRow{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now.Unix(),
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		exists, err := usernameExists(ctx, tx, username)
		if err != nil {
			return err
		}
		if exists {
			return ErrUsernameTaken
		}

		query, args, err := db.Builder.
			Insert("users").
			Columns("id", "username", "password_hash", "created_at").
			Values(row.ID, row.Username, row.PasswordHash, row.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	obs.From(ctx).Info("user_registered", "user_id", row.ID)
	return row.toUser(), nil
}

// Authenticate verifies username/password credentials. Unknown usernames and
// wrong passwords both return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	row, err := s.findOne(ctx, sq.Eq{"username": strings.TrimSpace(username)})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.VerifyPassword(password, row.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return row.toUser(), nil
}

// GetByID returns the user with id or ErrUserNotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*User, error) {
	row, err := s.findOne(ctx, sq.Eq{"id": id})
	if err != nil {
		return nil, err
	}
	return row.toUser(), nil
}

// GetByUsername returns the user named username or ErrUserNotFound.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*User, error) {
	row, err := s.findOne(ctx, sq.Eq{"username": strings.TrimSpace(username)})
	if err != nil {
		return nil, err
	}
	return row.toUser(), nil
}

func (s *UserService) findOne(ctx context.Context, where sq.Eq) (*userRow, error) {
	query, args, err := db.Builder.
		Select("id", "username", "password_hash", "created_at").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row userRow
	if err := s.db.X().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &row, nil
}

func usernameExists(ctx context.Context, tx *sqlx.Tx, username string) (bool, error) {
	query, args, err := db.Builder.
		Select("COUNT(*)").
		From("users").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build username check: %w", err)
	}
	var n int
	if err := tx.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return n > 0, nil
}
