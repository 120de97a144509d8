package account

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("account not found")

type Status string

const (
	StatusCreated     Status = "CREATED"
	StatusActivated   Status = "ACTIVATED"
	StatusDeactivated Status = "DEACTIVATED"
)

// CanTransitionTo reports whether an account may move from s to target.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusCreated:
		return target == StatusActivated || target == StatusDeactivated
	case StatusActivated:
		return target == StatusDeactivated
	case StatusDeactivated:
		return target == StatusActivated
	default:
		return false
	}
}

type Account struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	ContractID  string    `json:"contract_id"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

func (a *Account) ChangeStatus(target Status) error {
	if !a.Status.CanTransitionTo(target) {
		return fmt.Errorf("invalid account status transition: %s -> %s", a.Status, target)
	}
	a.Status = target
	a.LastUpdated = time.Now().UTC()
	return nil
}

type Reader interface {
	GetByID(ctx context.Context, id int64) (*Account, error)
}
