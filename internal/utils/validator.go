// internal/utils/validator.go
package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	hexPayloadRe = regexp.MustCompile(`^0[xX]([0-9a-fA-F]{2})+$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("hex_payload", validateHexPayload)
	validate.RegisterValidation("wallet_signature", validateWalletSignature)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// hex_payload: 0x-prefixed, non-empty, whole bytes
func validateHexPayload(fl validator.FieldLevel) bool {
	return hexPayloadRe.MatchString(fl.Field().String())
}

// wallet_signature: 65 bytes as 0x-prefixed hex
func validateWalletSignature(fl validator.FieldLevel) bool {
	sig := fl.Field().String()
	return len(sig) == 2+65*2 && hexPayloadRe.MatchString(sig)
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "eth_addr":
		return e.Field() + " must be a 0x-prefixed 20 byte address"
	case "url":
		return e.Field() + " must be a valid URL"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "hex_payload":
		return e.Field() + " must be 0x-prefixed hex"
	case "wallet_signature":
		return e.Field() + " must be a 65 byte hex signature"
	default:
		return e.Field() + " is invalid"
	}
}
