package event

const AggregateCard = "Card"

var CardAssignedType = Define("CardAssigned", nil, func() Event { return &CardAssigned{} })

// CardAssigned is emitted when a card is bound to an account.
type CardAssigned struct {
	Base
	CardID    int64 `json:"cardId"`
	AccountID int64 `json:"accountId"`
}

func NewCardAssigned(cardID, accountID int64) *CardAssigned {
	return &CardAssigned{
		Base:      NewBase(Source{AggregateType: AggregateCard, AggregateID: cardID}),
		CardID:    cardID,
		AccountID: accountID,
	}
}

func (e *CardAssigned) Type() *Type {
	return CardAssignedType
}

// DefaultCatalog lists the event types this service emits.
func DefaultCatalog() *Catalog {
	return NewCatalog(CardAssignedType)
}
