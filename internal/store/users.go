package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/bloodbank/internal/model"
)

// NewUser holds the fields supplied at registration.
type NewUser struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	Phone        string
	BloodGroup   string
	DateOfBirth  *time.Time
}

const userColumns = `id, email, password_hash, role, name, phone, blood_group, date_of_birth,
	blood_given, blood_taken, last_donate_date, available, avatar_mime, created_at, deleted_at`

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	var phone, bloodGroup, avatarMime sql.NullString
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &phone, &bloodGroup, &u.DateOfBirth,
		&u.BloodGiven, &u.BloodTaken, &u.LastDonateDate, &u.Available, &avatarMime, &u.CreatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	u.Phone = phone.String
	u.BloodGroup = bloodGroup.String
	u.AvatarMime = avatarMime.String
	return &u, nil
}

// CreateUser creates a new user. A duplicate active email is a conflict.
func CreateUser(ctx context.Context, q Querier, nu NewUser) (*model.User, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, role, name, phone, blood_group, date_of_birth)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(nu.Email), nu.PasswordHash, nu.Role, nu.Name,
		nullString(nu.Phone), nullString(nu.BloodGroup), nu.DateOfBirth,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, model.Conflictf("email %s is already registered", nu.Email)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the active user with the given email.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, strings.ToLower(email),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// IncrementBloodTaken adds units to a user's lifetime received count.
func IncrementBloodTaken(ctx context.Context, q Querier, id int64, units int) error {
	return increment(ctx, q,
		`UPDATE users SET blood_taken = blood_taken + ? WHERE id = ?`, id, units)
}

// IncrementBloodGiven adds units to a user's lifetime donated count. When
// donatedAt is set it also becomes the user's last donation date and the
// user is marked unavailable until the availability job clears it.
func IncrementBloodGiven(ctx context.Context, q Querier, id int64, units int, donatedAt *time.Time) error {
	if donatedAt == nil {
		return increment(ctx, q,
			`UPDATE users SET blood_given = blood_given + ? WHERE id = ?`, id, units)
	}
	return increment(ctx, q,
		`UPDATE users SET blood_given = blood_given + ?, last_donate_date = ?, available = 0 WHERE id = ?`,
		id, units, *donatedAt)
}

// increment runs a counter update whose first placeholder is the amount and
// whose last is the user ID.
func increment(ctx context.Context, q Querier, query string, id int64, units int, extra ...any) error {
	if units <= 0 {
		return model.Validationf("counter increment must be positive")
	}
	args := append([]any{units}, extra...)
	args = append(args, id)

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("incrementing user counter: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("incrementing user counter: %w", err)
	}
	if n == 0 {
		return model.NotFoundf("user %d not found", id)
	}
	return nil
}

// SetAvatar stores a processed avatar image.
func SetAvatar(ctx context.Context, q Querier, id int64, data []byte, mime string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET avatar = ?, avatar_mime = ? WHERE id = ? AND deleted_at IS NULL`,
		data, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting avatar: %w", err)
	}
	return nil
}

// GetAvatar returns a user's avatar, or nil data if none is set.
func GetAvatar(ctx context.Context, q Querier, id int64) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT avatar, avatar_mime FROM users WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting avatar: %w", err)
	}
	return data, mime.String, nil
}

// DonorAvailability is the slice of a user the availability job needs.
type DonorAvailability struct {
	UserID         int64
	LastDonateDate time.Time
	Available      bool
}

// ListDonorAvailability returns every active user who has donated at least once.
func ListDonorAvailability(ctx context.Context, q Querier) ([]DonorAvailability, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, last_donate_date, available FROM users
		 WHERE last_donate_date IS NOT NULL AND deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing donor availability: %w", err)
	}
	defer rows.Close()

	var donors []DonorAvailability
	for rows.Next() {
		var d DonorAvailability
		if err := rows.Scan(&d.UserID, &d.LastDonateDate, &d.Available); err != nil {
			return nil, fmt.Errorf("scanning donor availability: %w", err)
		}
		donors = append(donors, d)
	}
	return donors, rows.Err()
}

// SetAvailability updates a user's availability flag.
func SetAvailability(ctx context.Context, q Querier, id int64, available bool) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET available = ? WHERE id = ?`, available, id,
	)
	if err != nil {
		return fmt.Errorf("setting availability: %w", err)
	}
	return nil
}
