package cash

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSession_Close(t *testing.T) {
	operator := uuid.New()
	s, err := OpenSession(uuid.New(), operator, dec("100"))
	require.NoError(t, err)
	require.Len(t, s.GetDomainEvents(), 1)

	sales := SaleTotals{
		Count:  3,
		Total:  dec("250"),
		Cash:   dec("120"),
		Change: dec("20"),
		ByMethod: map[string]decimal.Decimal{
			"cash": dec("100"),
			"pix":  dec("150"),
		},
	}

	_, err = s.AddMovement(MovementSupply, dec("50"), "Troco extra", operator, sales)
	require.NoError(t, err)
	_, err = s.AddMovement(MovementWithdrawal, dec("30"), "Sangria", operator, sales)
	require.NoError(t, err)

	// 100 + 120 - 20 + 50 - 30
	assert.True(t, s.ExpectedCash(sales).Equal(dec("220")))

	require.NoError(t, s.Close(operator, dec("215.50"), "", sales))
	assert.Equal(t, SessionClosed, s.Status)
	assert.True(t, s.ExpectedBalance.Equal(dec("220")))
	assert.True(t, s.Difference.Equal(dec("-4.50")))
	assert.Equal(t, 3, s.SalesCount)
	assert.Len(t, s.Totals, 2)

	assert.Error(t, s.Close(operator, dec("1"), "", sales))
	_, err = s.AddMovement(MovementSupply, dec("1"), "x", operator, sales)
	assert.Error(t, err)
}

func TestSession_WithdrawalLimit(t *testing.T) {
	operator := uuid.New()
	s, err := OpenSession(uuid.New(), operator, dec("50"))
	require.NoError(t, err)

	_, err = s.AddMovement(MovementWithdrawal, dec("50.01"), "Sangria", operator, SaleTotals{})
	assert.Error(t, err)
	_, err = s.AddMovement(MovementWithdrawal, dec("50"), "Sangria", operator, SaleTotals{})
	assert.NoError(t, err)
	_, err = s.AddMovement(MovementWithdrawal, dec("10"), "", operator, SaleTotals{})
	assert.Error(t, err)
}

func TestOpenSession_Validation(t *testing.T) {
	_, err := OpenSession(uuid.New(), uuid.Nil, decimal.Zero)
	assert.Error(t, err)
	_, err = OpenSession(uuid.New(), uuid.New(), dec("-1"))
	assert.Error(t, err)
}
