package card

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emsp/internal/domain/account"
)

var (
	ErrNotFound         = errors.New("card not found")
	ErrInvalidOperation = errors.New("invalid card operation")
)

type Status string

const (
	StatusCreated     Status = "CREATED"
	StatusAssigned    Status = "ASSIGNED"
	StatusActivated   Status = "ACTIVATED"
	StatusDeactivated Status = "DEACTIVATED"
)

// CanTransitionTo reports whether a card may move from s to target.
// DEACTIVATED is terminal.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusCreated:
		return target == StatusAssigned
	case StatusAssigned:
		return target == StatusActivated
	case StatusActivated:
		return target == StatusDeactivated
	default:
		return false
	}
}

type Card struct {
	ID            int64     `json:"id"`
	RFIDUID       string    `json:"rfid_uid"`
	VisibleNumber string    `json:"visible_number"`
	ContractID    string    `json:"contract_id,omitempty"`
	Status        Status    `json:"status"`
	AccountID     *int64    `json:"account_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}

// AssignTo binds the card to an activated account.
func (c *Card) AssignTo(a *account.Account) error {
	if a == nil {
		return fmt.Errorf("%w: account must not be nil", ErrInvalidOperation)
	}
	if c.Status != StatusCreated {
		return fmt.Errorf("%w: only cards in CREATED state can be assigned", ErrInvalidOperation)
	}
	if c.AccountID != nil {
		return fmt.Errorf("%w: card is already assigned to an account", ErrInvalidOperation)
	}
	if a.Status != account.StatusActivated {
		return fmt.Errorf("%w: account must be activated to assign a card", ErrInvalidOperation)
	}

	id := a.ID
	c.AccountID = &id
	c.ContractID = a.ContractID
	c.Status = StatusAssigned
	c.LastUpdated = time.Now().UTC()
	return nil
}

func (c *Card) ChangeStatus(target Status) error {
	if !c.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: status transition %s -> %s", ErrInvalidOperation, c.Status, target)
	}
	c.Status = target
	c.LastUpdated = time.Now().UTC()
	return nil
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Card, error)
	Update(ctx context.Context, c *Card) error
}
