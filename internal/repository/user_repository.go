package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Dan9191/bank-cards/internal/models"
)

const userColumns = `id, first_name, last_name, phone_number, COALESCE(email, ''), password_hash, roles, created_at, updated_at`

// UserRepository stores users in PostgreSQL
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository initializes a user repository on db
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user in the database
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO bank.users (first_name, last_name, phone_number, email, password_hash, roles, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		user.FirstName, user.LastName, user.PhoneNumber, user.Email, user.PasswordHash, pq.Array(user.Roles),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatePhone
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Update saves the user's names and email
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE bank.users
		SET first_name = $1, last_name = $2, email = NULLIF($3, ''), updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, user.FirstName, user.LastName, user.Email, user.ID).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	return nil
}

// FindByID retrieves a user by id
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM bank.users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByPhone retrieves a user by phone number
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM bank.users WHERE phone_number = $1`
	return r.findOne(ctx, query, phone)
}

// FindAll retrieves one page of users
func (r *UserRepository) FindAll(ctx context.Context, page models.PageRequest) (models.Page[models.User], error) {
	page = page.Normalize()
	total, err := pageTotal(ctx, r.db, `SELECT COUNT(*) FROM bank.users`)
	if err != nil {
		return models.Page[models.User]{}, err
	}

	query := `SELECT ` + userColumns + ` FROM bank.users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return models.Page[models.User]{}, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return models.Page[models.User]{}, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.User]{}, fmt.Errorf("row iteration error: %w", err)
	}
	return models.NewPage(users, page, total), nil
}

// ExistsByID reports whether a user with this id exists
func (r *UserRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bank.users WHERE id = $1)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user %d: %w", id, err)
	}
	return exists, nil
}

// ExistsByPhone reports whether a phone number is registered
func (r *UserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bank.users WHERE phone_number = $1)`
	if err := r.db.QueryRowContext(ctx, query, phone).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check phone number: %w", err)
	}
	return exists, nil
}

// Delete removes a user; the user's cards are removed by the foreign key cascade
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank.users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.PhoneNumber, &user.Email,
		&user.PasswordHash, pq.Array(&user.Roles), &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
