package usecase

import (
	"context"
	"fmt"

	"emsp/internal/domain/account"
	"emsp/internal/domain/card"
	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
)

type EventPublisher interface {
	Publish(ctx context.Context, e event.Event) error
}

type AssignCard struct {
	txManager outbox.Transactor
	cards     card.Repository
	accounts  account.Reader
	publisher EventPublisher
}

func NewAssignCard(
	txManager outbox.Transactor,
	cards card.Repository,
	accounts account.Reader,
	publisher EventPublisher,
) *AssignCard {
	return &AssignCard{
		txManager: txManager,
		cards:     cards,
		accounts:  accounts,
		publisher: publisher,
	}
}

type AssignCardParams struct {
	CardID    int64 `json:"card_id"`
	AccountID int64 `json:"account_id"`
}

type AssignCardResult struct {
	Card    *card.Card `json:"card"`
	EventID string     `json:"event_id"`
}

// Execute assigns the card and records CardAssigned in the same transaction.
func (uc *AssignCard) Execute(ctx context.Context, params AssignCardParams) (*AssignCardResult, error) {
	var result AssignCardResult

	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		c, err := uc.cards.GetByID(txCtx, params.CardID)
		if err != nil {
			return err
		}
		acc, err := uc.accounts.GetByID(txCtx, params.AccountID)
		if err != nil {
			return err
		}

		if err := c.AssignTo(acc); err != nil {
			return err
		}
		if err := uc.cards.Update(txCtx, c); err != nil {
			return err
		}

		assigned := event.NewCardAssigned(c.ID, acc.ID)
		if err := uc.publisher.Publish(txCtx, assigned); err != nil {
			return err
		}

		result = AssignCardResult{Card: c, EventID: assigned.EventID}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign card %d: %w", params.CardID, err)
	}

	return &result, nil
}
