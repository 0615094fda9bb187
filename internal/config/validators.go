package config

import (
	"encoding/hex"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// validateExclusive reports false when both this field and the field named
// by the tag parameter are non-empty strings.
func validateExclusive(fl validator.FieldLevel) bool {
	field := fl.Field()
	other := fl.Parent().FieldByName(fl.Param())

	if !field.IsValid() || !other.IsValid() {
		return true
	}

	if field.Kind() == reflect.String && other.Kind() == reflect.String {
		return field.String() == "" || other.String() == ""
	}

	return true
}

// validateHexKey accepts an even-length run of hex digits with no prefix.
func validateHexKey(fl validator.FieldLevel) bool {
	_, err := hex.DecodeString(fl.Field().String())
	return err == nil
}
