package seller

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeller(t *testing.T) {
	s, err := NewSeller(uuid.New(), " João ", decimal.NewFromFloat(2.5))
	require.NoError(t, err)
	assert.Equal(t, "João", s.Name)
	assert.True(t, s.Active)
	assert.Equal(t, 1, s.Version)

	_, err = NewSeller(uuid.New(), "", decimal.Zero)
	assert.Error(t, err)
	_, err = NewSeller(uuid.New(), "Maria", decimal.NewFromInt(101))
	assert.Error(t, err)
}

func TestSeller_Update(t *testing.T) {
	s, err := NewSeller(uuid.New(), "Maria", decimal.Zero)
	require.NoError(t, err)

	require.NoError(t, s.Update("Maria Silva", "529.982.247-25", "MARIA@LOJA.COM", "(11) 98888-7777"))
	assert.Equal(t, "52998224725", s.CPF)
	assert.Equal(t, "maria@loja.com", s.Email)
	assert.Equal(t, "11988887777", s.Phone)

	assert.Error(t, s.Update("Maria", "123.456.789-00", "", ""))
}

func TestSeller_Commission(t *testing.T) {
	s, err := NewSeller(uuid.New(), "Maria", decimal.NewFromFloat(3))
	require.NoError(t, err)
	assert.True(t, s.Commission(decimal.RequireFromString("1234.56")).Equal(decimal.RequireFromString("37.04")))
}

func TestSeller_ActivateDeactivate(t *testing.T) {
	s, err := NewSeller(uuid.New(), "Maria", decimal.Zero)
	require.NoError(t, err)
	assert.Error(t, s.Activate())
	require.NoError(t, s.Deactivate())
	assert.Error(t, s.Deactivate())
	require.NoError(t, s.Activate())
}
