package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"emsp/internal/domain/account"
)

var ErrDuplicate = errors.New("record already exists")

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	const sql = `
		INSERT INTO accounts (email, contract_id, status, last_updated)
		VALUES ($1, $2, $3, NOW())
		RETURNING account_id, last_updated
	`

	err := conn(ctx, r.pool).QueryRow(ctx, sql, a.Email, nullIfEmpty(a.ContractID), string(a.Status)).
		Scan(&a.ID, &a.LastUpdated)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert account %s: %w", a.Email, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	const sql = `
		SELECT account_id, email, COALESCE(contract_id, ''), status, last_updated
		FROM accounts
		WHERE account_id = $1
	`

	var (
		a      account.Account
		status string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, sql, id).Scan(&a.ID, &a.Email, &a.ContractID, &status, &a.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", account.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	a.Status = account.Status(status)
	return &a, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
