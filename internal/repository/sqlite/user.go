package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garnizeh/rojgar/internal/models"
	"github.com/garnizeh/rojgar/pkg/repository"
)

const userColumns = `id, first_name, last_name, username, email, address, skills, user_type, password_hash, created, updated`

// CreateUser inserts u. The email is stored lower-cased; u.ID must be set by the caller.
func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	ts := now()
	_, err := r.conn.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Username, u.Email, u.Address, encodeList(u.Skills), string(u.UserType), u.PasswordHash, ts, ts)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.email"):
			return repository.ErrEmailTaken
		case isUniqueViolation(err, "users.username"):
			return repository.ErrUsernameTaken
		}
		return err
	}

	u.Created, u.Updated = ts, ts
	r.logger.Debug("user created", "id", u.ID, "user_type", u.UserType)
	return nil
}

func (r *SQLiteRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *SQLiteRepo) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	row := r.conn.QueryRow(ctx, query, arg)

	var (
		u        models.User
		skills   string
		userType string
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Address, &skills, &userType, &u.PasswordHash, &u.Created, &u.Updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	list, err := decodeList(skills)
	if err != nil {
		return nil, fmt.Errorf("decode skills for user %s: %w", u.ID, err)
	}
	u.Skills = list
	u.UserType = models.UserType(userType)

	return &u, nil
}
