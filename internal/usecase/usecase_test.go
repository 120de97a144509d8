package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsp/internal/domain/account"
	"emsp/internal/domain/card"
	"emsp/internal/domain/event"
	"emsp/internal/domain/outbox"
	"emsp/internal/infrastructure/memory"
	"emsp/internal/publisher"
)

type cardsStub struct {
	mu    sync.Mutex
	cards map[int64]card.Card
}

func (s *cardsStub) GetByID(ctx context.Context, id int64) (*card.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", card.ErrNotFound, id)
	}
	return &c, nil
}

func (s *cardsStub) Update(ctx context.Context, c *card.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[c.ID] = *c
	return nil
}

type accountsStub map[int64]*account.Account

func (s accountsStub) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	a, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", account.ErrNotFound, id)
	}
	return a, nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, e event.Event) error {
	return outbox.ErrSerialization
}

func newAssign(pub EventPublisher) (*AssignCard, *cardsStub) {
	cards := &cardsStub{cards: map[int64]card.Card{10: {ID: 10, Status: card.StatusCreated}}}
	accounts := accountsStub{
		20: {ID: 20, Email: "driver@example.com", Status: account.StatusActivated},
		21: {ID: 21, Email: "new@example.com", Status: account.StatusCreated},
	}
	return NewAssignCard(memory.NewTransactor(), cards, accounts, pub), cards
}

func TestAssignCard_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore(event.DefaultCatalog(), nil)
	uc, cards := newAssign(publisher.New(store, nil, nil))

	res, err := uc.Execute(ctx, AssignCardParams{CardID: 10, AccountID: 20})
	require.NoError(t, err)
	assert.Equal(t, card.StatusAssigned, res.Card.Status)

	stored, err := cards.GetByID(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, stored.AccountID)
	assert.EqualValues(t, 20, *stored.AccountID)

	e, err := store.FindByID(ctx, res.EventID)
	require.NoError(t, err)
	assigned, ok := e.(*event.CardAssigned)
	require.True(t, ok)
	assert.EqualValues(t, 10, assigned.CardID)
	assert.EqualValues(t, 20, assigned.AccountID)
	assert.Equal(t, event.Source{AggregateType: "Card", AggregateID: 10}, assigned.Source)
	assert.Equal(t, event.StatusPending, assigned.Status)
}

func TestAssignCard_Failures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore(event.DefaultCatalog(), nil)

	uc, _ := newAssign(publisher.New(store, nil, nil))
	_, err := uc.Execute(ctx, AssignCardParams{CardID: 99, AccountID: 20})
	assert.ErrorIs(t, err, card.ErrNotFound)

	_, err = uc.Execute(ctx, AssignCardParams{CardID: 10, AccountID: 99})
	assert.ErrorIs(t, err, account.ErrNotFound)

	_, err = uc.Execute(ctx, AssignCardParams{CardID: 10, AccountID: 21})
	assert.ErrorIs(t, err, card.ErrInvalidOperation)

	pending, err := store.FindUnprocessed(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAssignCard_PublishFailureAbortsAssignment(t *testing.T) {
	uc, _ := newAssign(failingPublisher{})

	_, err := uc.Execute(context.Background(), AssignCardParams{CardID: 10, AccountID: 20})
	assert.True(t, errors.Is(err, outbox.ErrSerialization))
}

func TestGetEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore(event.DefaultCatalog(), nil)
	e := event.NewCardAssigned(10, 20)
	require.NoError(t, store.Save(ctx, e))

	dto, err := NewGetEvent(store).Execute(ctx, e.EventID)
	require.NoError(t, err)
	assert.Equal(t, "CardAssigned", dto.EventType)
	assert.Equal(t, "PENDING", dto.Status)
	assert.JSONEq(t, `10`, mustField(t, dto.Payload, "cardId"))

	_, err = NewGetEvent(store).Execute(ctx, "missing")
	assert.ErrorIs(t, err, outbox.ErrNotFound)
}

func mustField(t *testing.T, payload []byte, field string) string {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &m))
	return string(m[field])
}
