package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/gera1311/foodgram/internal/apperr"
	"github.com/gera1311/foodgram/internal/database"
	"github.com/gera1311/foodgram/internal/models"
)

const (
	maxEmailLength    = 254
	maxUsernameLength = 150
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const userColumns = `SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.avatar`

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	var avatar sql.NullString
	if err := s.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &avatar); err != nil {
		return nil, err
	}
	u.Avatar = avatar.String
	return &u, nil
}

func checkPassword(v *apperr.Validator, field, password string) {
	v.Check(utf8.RuneCountInString(password) >= minPasswordLength, field, "password_too_short",
		fmt.Sprintf("password must be at least %d characters", minPasswordLength))
}

// CreateUser registers a user with a bcrypt password hash.
func (r *Repository) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	u := models.User{
		Email:     strings.TrimSpace(in.Email),
		Username:  strings.TrimSpace(in.Username),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}

	v := apperr.NewValidator()
	if u.Email == "" {
		v.Add("email", "email_required", "email is required")
	} else if _, err := mail.ParseAddress(u.Email); err != nil || len(u.Email) > maxEmailLength {
		v.Add("email", "email_invalid", "enter a valid email address")
	}
	if u.Username == "" {
		v.Add("username", "username_required", "username is required")
	} else {
		v.Check(utf8.RuneCountInString(u.Username) <= maxUsernameLength && usernamePattern.MatchString(u.Username),
			"username", "username_invalid", "username may contain only letters, digits and @/./+/-/_")
	}
	v.Check(u.FirstName != "", "first_name", "first_name_required", "first name is required")
	v.Check(u.LastName != "", "last_name", "last_name_required", "last name is required")
	checkPassword(v, "password", in.Password)

	if !v.Failed("email") {
		taken, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower(?))`, u.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflictField("email", "email_taken", "a user with this email already exists")
		}
	}
	if !v.Failed("username") {
		taken, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, u.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflictField("username", "username_taken", "a user with this username already exists")
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, first_name, last_name, password_hash)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, u.Email, u.Username, u.FirstName, u.LastName, string(hash)).Scan(&u.ID)
	if database.IsUniqueViolation(err) {
		return nil, apperr.Conflict("user_exists", "a user with this email or username already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	r.log.Info("user registered", "user_id", u.ID, "username", u.Username)
	return &u, nil
}

func conflictField(field, code, msg string) *apperr.Error {
	e := apperr.Conflict(code, msg)
	e.Fields = []apperr.FieldError{{Field: field, Code: code, Message: msg}}
	return e
}

func (r *Repository) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return ok, nil
}

// GetUser returns the user with is_subscribed computed for viewerID.
func (r *Repository) GetUser(ctx context.Context, id, viewerID int64) (*models.User, error) {
	var u models.User
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx, userColumns+`,
		       EXISTS(SELECT 1 FROM follows fo WHERE fo.author_id = u.id AND fo.user_id = ?)
		FROM users u WHERE u.id = ?
	`, viewerID, id).Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &avatar, &u.IsSubscribed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.Avatar = avatar.String
	return &u, nil
}

func (r *Repository) ListUsers(ctx context.Context, viewerID int64, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	limit, offset = pageArgs(limit, offset)
	rows, err := r.db.QueryContext(ctx, userColumns+`,
		       EXISTS(SELECT 1 FROM follows fo WHERE fo.author_id = u.id AND fo.user_id = ?)
		FROM users u
		ORDER BY u.id
		LIMIT ? OFFSET ?
	`, viewerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var avatar sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &avatar, &u.IsSubscribed); err != nil {
			return nil, 0, err
		}
		u.Avatar = avatar.String
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Authenticate checks an email and password pair. Unknown emails and
// wrong passwords fail the same way.
func (r *Repository) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := apperr.Validation("credentials", "invalid_credentials", "unable to log in with the provided credentials")

	var hash string
	row := r.db.QueryRowContext(ctx, userColumns+`, u.password_hash FROM users u WHERE lower(u.email) = lower(?)`,
		strings.TrimSpace(email))
	var u models.User
	var avatar sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &avatar, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, invalid
	}
	u.Avatar = avatar.String
	return &u, nil
}

// SetPassword replaces the password after verifying the current one.
func (r *Repository) SetPassword(ctx context.Context, userID int64, current, next string) error {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = ?`, userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		return fmt.Errorf("load password: %w", err)
	}

	v := apperr.NewValidator()
	v.Check(bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) == nil,
		"current_password", "password_mismatch", "current password is incorrect")
	checkPassword(v, "new_password", next)
	if err := v.Err(); err != nil {
		return err
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), r.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, string(newHash), userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetAvatar stores a new avatar reference and returns the previous one.
func (r *Repository) SetAvatar(ctx context.Context, userID int64, ref string) (previous string, err error) {
	if strings.TrimSpace(ref) == "" {
		return "", apperr.Validation("avatar", "avatar_required", "avatar is required")
	}
	err = r.withTx(ctx, func(tx *database.Tx) error {
		prev, err := currentAvatar(ctx, tx, userID)
		if err != nil {
			return err
		}
		previous = prev
		_, err = tx.ExecContext(ctx, `UPDATE users SET avatar = ? WHERE id = ?`, ref, userID)
		return err
	})
	return previous, err
}

// ClearAvatar removes the avatar and returns the reference that was set.
func (r *Repository) ClearAvatar(ctx context.Context, userID int64) (previous string, err error) {
	err = r.withTx(ctx, func(tx *database.Tx) error {
		prev, err := currentAvatar(ctx, tx, userID)
		if err != nil {
			return err
		}
		if prev == "" {
			return apperr.NotFound("avatar_missing", "user has no avatar")
		}
		previous = prev
		_, err = tx.ExecContext(ctx, `UPDATE users SET avatar = ? WHERE id = ?`, nullString(""), userID)
		return err
	})
	return previous, err
}

func currentAvatar(ctx context.Context, q querier, userID int64) (string, error) {
	var avatar sql.NullString
	err := q.QueryRowContext(ctx, `SELECT avatar FROM users WHERE id = ?`, userID).Scan(&avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("user_not_found", "user not found")
	}
	if err != nil {
		return "", fmt.Errorf("load avatar: %w", err)
	}
	return avatar.String, nil
}
