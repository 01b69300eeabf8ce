package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCPF(t *testing.T) {
	t.Run("accepts formatted and bare numbers", func(t *testing.T) {
		assert.True(t, ValidCPF("529.982.247-25"))
		assert.True(t, ValidCPF("52998224725"))
	})

	t.Run("rejects wrong check digits", func(t *testing.T) {
		assert.False(t, ValidCPF("529.982.247-24"))
	})

	t.Run("rejects repeated digits and wrong length", func(t *testing.T) {
		assert.False(t, ValidCPF("111.111.111-11"))
		assert.False(t, ValidCPF("5299822472"))
		assert.False(t, ValidCPF(""))
	})
}

func TestValidCNPJ(t *testing.T) {
	assert.True(t, ValidCNPJ("11.222.333/0001-81"))
	assert.True(t, ValidCNPJ("11444777000161"))
	assert.False(t, ValidCNPJ("11.222.333/0001-82"))
	assert.False(t, ValidCNPJ("00000000000000"))
	assert.False(t, ValidCNPJ("1122233300018"))
}

func TestValidDocument(t *testing.T) {
	assert.True(t, ValidDocument("52998224725"))
	assert.True(t, ValidDocument("11222333000181"))
	assert.False(t, ValidDocument("123"))
}

func TestValidGTIN(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"ean13", "4006381333931", true},
		{"ean13 wrong check digit", "4006381333932", false},
		{"ean8", "96385074", true},
		{"letters", "40063813339A1", false},
		{"bad length", "12345", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidGTIN(tt.code))
		})
	}
}

func TestStateIBGECode(t *testing.T) {
	code, ok := StateIBGECode("sp")
	assert.True(t, ok)
	assert.Equal(t, "35", code)

	_, ok = StateIBGECode("XX")
	assert.False(t, ok)
	assert.True(t, ValidUF("RJ"))
}
