// Package handler holds the event handlers registered with the dispatcher.
package handler

import (
	"context"
	"fmt"

	"emsp/internal/domain/account"
	"emsp/internal/domain/event"
)

const cardAssignedSubject = "Card assigned notification"

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CardAssignment emails the account owner when a card is assigned.
type CardAssignment struct {
	accounts account.Reader
	email    EmailSender
}

func NewCardAssignment(accounts account.Reader, email EmailSender) *CardAssignment {
	return &CardAssignment{accounts: accounts, email: email}
}

func (h *CardAssignment) Handles() *event.Type {
	return event.CardAssignedType
}

func (h *CardAssignment) Handle(ctx context.Context, e event.Event) error {
	assigned, ok := e.(*event.CardAssigned)
	if !ok {
		return fmt.Errorf("card assignment handler cannot handle %s", e.Type())
	}

	acc, err := h.accounts.GetByID(ctx, assigned.AccountID)
	if err != nil {
		return fmt.Errorf("load account %d: %w", assigned.AccountID, err)
	}

	body := fmt.Sprintf("Card (ID: %d) has been assigned to your account.", assigned.CardID)
	if err := h.email.Send(ctx, acc.Email, cardAssignedSubject, body); err != nil {
		return fmt.Errorf("notify account %d: %w", acc.ID, err)
	}
	return nil
}
