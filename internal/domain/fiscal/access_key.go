package fiscal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// AccessKeyLength is the number of digits of an NFe/NFCe access key
const AccessKeyLength = 44

// EmissionNormal is tpEmis 1, regular online issuing
const EmissionNormal = 1

// AccessKeyParams are the parts of an access key
type AccessKeyParams struct {
	UF       string
	IssuedAt time.Time
	CNPJ     string
	Model    string
	Series   int
	Number   int64
	Emission int
	Code     int // cNF, 8 digits
}

// BuildAccessKey composes cUF AAMM CNPJ mod serie nNF tpEmis cNF cDV
func BuildAccessKey(p AccessKeyParams) (string, error) {
	uf, ok := shared.StateIBGECode(p.UF)
	if !ok {
		return "", shared.NewDomainError("INVALID_STATE", "Unknown issuer state")
	}
	cnpj := shared.OnlyDigits(p.CNPJ)
	if len(cnpj) != 14 {
		return "", shared.NewDomainError("INVALID_CNPJ", "Issuer CNPJ must have 14 digits")
	}
	if p.Model != "55" && p.Model != "65" {
		return "", shared.NewDomainError("INVALID_MODEL", "Model must be 55 or 65")
	}
	emission := p.Emission
	if emission == 0 {
		emission = EmissionNormal
	}
	body := fmt.Sprintf("%s%s%s%s%03d%09d%d%08d",
		uf, p.IssuedAt.Format("0601"), cnpj, p.Model, p.Series, p.Number, emission, p.Code%100000000)
	if len(body) != AccessKeyLength-1 {
		return "", shared.NewDomainError("INVALID_ACCESS_KEY", "Access key parts are out of range")
	}
	return body + fmt.Sprint(Mod11(body)), nil
}

// Mod11 computes the check digit with weights 2..9 from the right
func Mod11(digits string) int {
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv >= 10 {
		return 0
	}
	return dv
}

// ValidAccessKey checks length and check digit
func ValidAccessKey(key string) bool {
	if len(key) != AccessKeyLength || shared.OnlyDigits(key) != key {
		return false
	}
	return Mod11(key[:43]) == int(key[43]-'0')
}

// NumericCode derives a stable 8 digit cNF from the document id
func NumericCode(id uuid.UUID) int {
	n := 0
	for _, b := range id[:4] {
		n = n<<8 | int(b)
	}
	return n % 100000000
}
