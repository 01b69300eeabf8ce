package printing

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := map[string]string{
		"ação café pão":     "acao cafe pao",
		"CUPOM Nº 12":       "CUPOM No 12",
		"Crediário":         "Crediario",
		"linha\ncom quebra": "linha com quebra",
		"emoji 😀":           "emoji ?",
	}
	for in, want := range tests {
		assert.Equal(t, want, Fold(in), in)
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{""}, Wrap("", 10))
	assert.Equal(t, []string{"curto"}, Wrap("curto", 10))
	assert.Equal(t, []string{"arroz tipo", "1 pacote"}, Wrap("arroz tipo 1 pacote", 10))
	assert.Equal(t, []string{"abcdefghij", "klm"}, Wrap("abcdefghijklm", 10))
}

func TestPadPair(t *testing.T) {
	assert.Equal(t, "Total    10,00", PadPair("Total", "10,00", 14))
	assert.Equal(t, "Descricao 12,00", PadPair("Descricao longa", "12,00", 15))
	assert.Len(t, PadPair("a", "b", 32), 32)
	assert.Equal(t, "12345", PadPair("x", "1234567", 5))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(32)
	out := b.Align(AlignCenter).Bold(true).Line("Olá").Bold(false).Cut().Bytes()

	assert.True(t, bytes.HasPrefix(out, []byte{0x1B, '@'}), "stream starts with init")
	assert.Contains(t, string(out), "Ola\n")
	assert.True(t, bytes.Contains(out, []byte{0x1B, 'a', 1}))
	assert.True(t, bytes.Contains(out, []byte{0x1B, 'E', 1}))
	assert.True(t, bytes.HasSuffix(out, []byte{0x1D, 'V', 66, 0}))
}

func TestBuilder_QRCode(t *testing.T) {
	data := "https://www.sefaz.rs.gov.br/NFCE/NFCE-COM.aspx?p=123"
	out := NewBuilder(48).QRCode(data, 5).Bytes()

	n := len(data) + 3
	store := append([]byte{0x1D, '(', 'k', byte(n % 256), byte(n / 256), 49, 80, 48}, data...)
	assert.True(t, bytes.Contains(out, store))
	assert.True(t, bytes.HasSuffix(out, []byte{0x1D, '(', 'k', 3, 0, 49, 81, 48}))

	empty := NewBuilder(48).QRCode("", 5).Bytes()
	assert.Equal(t, []byte{0x1B, '@'}, empty)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", FormatBRL(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "R$ 0,50", FormatBRL(decimal.RequireFromString("0.5")))
	assert.Equal(t, "-1.000.000,00", FormatDecimal(decimal.NewFromInt(-1000000), 2))
	assert.Equal(t, "2", FormatQuantity(decimal.NewFromInt(2)))
	assert.Equal(t, "0,350", FormatQuantity(decimal.RequireFromString("0.35")))
	assert.Equal(t, "123.456.789-09", FormatDocument("12345678909"))
	assert.Equal(t, "11.222.333/0001-81", FormatDocument("11222333000181"))
	assert.Equal(t, "abc", FormatDocument("abc"))
	assert.Equal(t, "3524 0112 3456", GroupDigits("352401123456"))
	assert.Equal(t, "1234 5", GroupDigits("12345"))
}
