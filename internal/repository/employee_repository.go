package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thatlq1812/signature-system/internal/domain"
)

// EmployeeRepository reads signer identities owned by the account
// collaborator. Read-only to this service.
type EmployeeRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Employee, error)
}

type employeeRepository struct {
	db *pgxpool.Pool
}

func NewEmployeeRepository(db *pgxpool.Pool) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) GetByUserID(ctx context.Context, userID string) (*domain.Employee, error) {
	query := `
        SELECT user_id, employee_id, first_name, last_name, email,
               phone_number, password_hash, totp_verified, created_at
        FROM employees
        WHERE user_id = $1
    `

	var emp domain.Employee
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&emp.UserID, &emp.EmployeeID, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.PhoneNumber, &emp.PasswordHash, &emp.TotpVerified, &emp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &emp, nil
}
