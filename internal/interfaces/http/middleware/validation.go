package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/interfaces/http/dto"
)

// SetupValidator makes validation errors use JSON field names and registers
// the Brazilian document and product code tags (cpf, cnpj, document, gtin, ncm, uf).
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	for tag, fn := range customValidators {
		_ = v.RegisterValidation(tag, fn)
	}
}

var customValidators = map[string]validator.Func{
	"cpf":      stringRule(shared.ValidCPF),
	"cnpj":     stringRule(shared.ValidCNPJ),
	"document": stringRule(shared.ValidDocument),
	"gtin":     stringRule(shared.ValidGTIN),
	"uf":       stringRule(shared.ValidUF),
	"ncm": stringRule(func(s string) bool {
		return len(s) == 8 && shared.OnlyDigits(s) == s
	}),
}

func stringRule(rule func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() == reflect.Pointer {
			if f.IsNil() {
				return true
			}
			f = f.Elem()
		}
		if f.Kind() != reflect.String {
			return false
		}
		return rule(f.String())
	}
}

// FormatValidationErrors turns validator errors into the standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: validationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers 400 with per-field details
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gtefield":
		return "Must not be before " + e.Param()
	case "numeric":
		return "Must be numeric"
	case "cpf":
		return "Invalid CPF"
	case "cnpj":
		return "Invalid CNPJ"
	case "document":
		return "Invalid CPF or CNPJ"
	case "gtin":
		return "Invalid barcode check digit"
	case "ncm":
		return "NCM must have 8 digits"
	case "uf":
		return "Invalid state code"
	}
	return "Invalid value"
}
