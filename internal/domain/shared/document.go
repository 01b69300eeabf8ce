package shared

import "strings"

// OnlyDigits strips every non digit rune from s
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// ValidCPF checks an individual taxpayer number (11 digits, two mod-11 check digits).
// Punctuation is ignored.
func ValidCPF(cpf string) bool {
	d := OnlyDigits(cpf)
	if len(d) != 11 || allSameDigit(d) {
		return false
	}
	for pos := 9; pos <= 10; pos++ {
		sum := 0
		for i := 0; i < pos; i++ {
			sum += int(d[i]-'0') * (pos + 1 - i)
		}
		check := (sum * 10) % 11
		if check == 10 {
			check = 0
		}
		if check != int(d[pos]-'0') {
			return false
		}
	}
	return true
}

// ValidCNPJ checks a company taxpayer number (14 digits, two mod-11 check digits).
// Punctuation is ignored.
func ValidCNPJ(cnpj string) bool {
	d := OnlyDigits(cnpj)
	if len(d) != 14 || allSameDigit(d) {
		return false
	}
	weights := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	for pos := 12; pos <= 13; pos++ {
		sum := 0
		w := weights[13-pos:]
		for i := 0; i < pos; i++ {
			sum += int(d[i]-'0') * w[i]
		}
		check := sum % 11
		if check < 2 {
			check = 0
		} else {
			check = 11 - check
		}
		if check != int(d[pos]-'0') {
			return false
		}
	}
	return true
}

// ValidDocument accepts either a CPF or a CNPJ
func ValidDocument(doc string) bool {
	d := OnlyDigits(doc)
	switch len(d) {
	case 11:
		return ValidCPF(d)
	case 14:
		return ValidCNPJ(d)
	}
	return false
}

// ValidGTIN checks a GTIN-8/12/13/14 barcode check digit
func ValidGTIN(code string) bool {
	if code == "" || OnlyDigits(code) != code {
		return false
	}
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return false
	}
	sum := 0
	body := code[:len(code)-1]
	for i := len(body) - 1; i >= 0; i-- {
		n := int(body[i] - '0')
		// weights alternate 3,1 starting from the digit next to the check digit
		if (len(body)-1-i)%2 == 0 {
			n *= 3
		}
		sum += n
	}
	check := (10 - sum%10) % 10
	return check == int(code[len(code)-1]-'0')
}

// brazilianStates lists the valid UF codes
var brazilianStates = map[string]string{
	"AC": "12", "AL": "27", "AP": "16", "AM": "13", "BA": "29", "CE": "23", "DF": "53",
	"ES": "32", "GO": "52", "MA": "21", "MT": "51", "MS": "50", "MG": "31", "PA": "15",
	"PB": "25", "PR": "41", "PE": "26", "PI": "22", "RJ": "33", "RN": "24", "RS": "43",
	"RO": "11", "RR": "14", "SC": "42", "SP": "35", "SE": "28", "TO": "17",
}

// ValidUF reports whether uf is a Brazilian state code
func ValidUF(uf string) bool {
	_, ok := brazilianStates[strings.ToUpper(uf)]
	return ok
}

// StateIBGECode returns the two digit IBGE code of a state, used in fiscal access keys
func StateIBGECode(uf string) (string, bool) {
	code, ok := brazilianStates[strings.ToUpper(uf)]
	return code, ok
}
