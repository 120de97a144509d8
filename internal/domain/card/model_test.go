package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emsp/internal/domain/account"
)

func TestAssignTo(t *testing.T) {
	acc := &account.Account{ID: 20, ContractID: "NL-TNM-C00122045-K", Status: account.StatusActivated}
	c := &Card{ID: 10, Status: StatusCreated}

	require.NoError(t, c.AssignTo(acc))
	assert.Equal(t, StatusAssigned, c.Status)
	require.NotNil(t, c.AccountID)
	assert.EqualValues(t, 20, *c.AccountID)
	assert.Equal(t, acc.ContractID, c.ContractID)

	err := c.AssignTo(acc)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestAssignTo_Rejections(t *testing.T) {
	inactive := &account.Account{ID: 1, Status: account.StatusCreated}

	assert.ErrorIs(t, (&Card{Status: StatusCreated}).AssignTo(nil), ErrInvalidOperation)
	assert.ErrorIs(t, (&Card{Status: StatusCreated}).AssignTo(inactive), ErrInvalidOperation)
	assert.ErrorIs(t, (&Card{Status: StatusActivated}).AssignTo(&account.Account{Status: account.StatusActivated}), ErrInvalidOperation)
}

func TestStatusMachine(t *testing.T) {
	c := &Card{Status: StatusAssigned}
	require.NoError(t, c.ChangeStatus(StatusActivated))
	require.NoError(t, c.ChangeStatus(StatusDeactivated))

	for _, target := range []Status{StatusCreated, StatusAssigned, StatusActivated, StatusDeactivated} {
		assert.Error(t, c.ChangeStatus(target), "DEACTIVATED must be terminal")
	}
}
