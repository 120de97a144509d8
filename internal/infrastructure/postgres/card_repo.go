package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"emsp/internal/domain/card"
)

type CardRepository struct {
	pool *pgxpool.Pool
}

func NewCardRepository(pool *pgxpool.Pool) *CardRepository {
	return &CardRepository{pool: pool}
}

func (r *CardRepository) Create(ctx context.Context, c *card.Card) error {
	const sql = `
		INSERT INTO cards (rfid_uid, visible_number, status, created_at, last_updated)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING card_id, created_at, last_updated
	`

	err := conn(ctx, r.pool).QueryRow(ctx, sql, c.RFIDUID, c.VisibleNumber, string(c.Status)).
		Scan(&c.ID, &c.CreatedAt, &c.LastUpdated)
	if isUniqueViolation(err) {
		return fmt.Errorf("insert card %s: %w", c.RFIDUID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByID reads the card. Inside a transaction the row is locked for update.
func (r *CardRepository) GetByID(ctx context.Context, id int64) (*card.Card, error) {
	sql := `
		SELECT card_id, rfid_uid, visible_number, COALESCE(contract_id, ''), status, account_id, created_at, last_updated
		FROM cards
		WHERE card_id = $1
	`
	if GetTx(ctx) != nil {
		sql += ` FOR UPDATE`
	}

	var (
		c      card.Card
		status string
	)
	err := conn(ctx, r.pool).QueryRow(ctx, sql, id).Scan(
		&c.ID, &c.RFIDUID, &c.VisibleNumber, &c.ContractID, &status, &c.AccountID, &c.CreatedAt, &c.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", card.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	c.Status = card.Status(status)
	return &c, nil
}

func (r *CardRepository) Update(ctx context.Context, c *card.Card) error {
	const sql = `
		UPDATE cards
		SET contract_id = $2, status = $3, account_id = $4, last_updated = $5
		WHERE card_id = $1
	`

	cmdTag, err := conn(ctx, r.pool).Exec(ctx, sql, c.ID, nullIfEmpty(c.ContractID), string(c.Status), c.AccountID, c.LastUpdated)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", card.ErrNotFound, c.ID)
	}
	return nil
}
