package service

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"techservice/internal/model"
)

// MinPasswordLength is the shortest password accepted for staff logins.
const MinPasswordLength = 8

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags of input and reports the first
// failure as a ValidationError.
func validateStruct(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalid(fe.Field(), "is required")
	case "min":
		return invalid(fe.Field(), "must be at least "+fe.Param()+" characters")
	case "oneof":
		return invalid(fe.Field(), "must be one of: "+fe.Param())
	case "email":
		return invalid(fe.Field(), "must be a valid email address")
	default:
		return invalid(fe.Field(), "is invalid")
	}
}

// Amount is a raw monetary input. It unmarshals from a JSON number or string
// so that non-numeric text reaches validation instead of failing decoding.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	*a = Amount(raw)
	return nil
}

// MaxAmount is the largest value a NUMERIC(12,2) amount column holds.
const MaxAmount = 9999999999.99

// amountPattern is a plain decimal with "." or "," as the separator.
var amountPattern = regexp.MustCompile(`^-?[0-9]+([.,][0-9]+)?$`)

// ParseAmount parses an optional amount. Empty input yields nil. Anything that
// is not a plain non-negative decimal within MaxAmount is a validation error
// on field. Values are rounded to cents.
func ParseAmount(field string, raw Amount) (*float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, nil
	}
	if !amountPattern.MatchString(s) {
		return nil, invalid(field, "must be a decimal number")
	}
	if strings.HasPrefix(s, "-") {
		return nil, invalid(field, "must not be negative")
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, invalid(field, "must be a decimal number")
	}
	v = math.Round(v*100) / 100
	if v > MaxAmount {
		return nil, invalid(field, "must not exceed 9999999999.99")
	}
	return &v, nil
}

// RequireAmount is ParseAmount with empty input rejected.
func RequireAmount(field string, raw Amount) (float64, error) {
	v, err := ParseAmount(field, raw)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, invalid(field, "is required")
	}
	return *v, nil
}

// optionalString trims s and maps the empty string to nil.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ResolveBrand returns the stored brand for a form selection. The "custom"
// choice stores the typed text; it is never stored itself.
func ResolveBrand(choice, custom string) *string {
	choice = strings.TrimSpace(choice)
	if strings.EqualFold(choice, model.BrandCustomSentinel) {
		if strings.EqualFold(strings.TrimSpace(custom), model.BrandCustomSentinel) {
			return nil
		}
		return optionalString(custom)
	}
	switch strings.ToUpper(choice) {
	case model.BrandKobra:
		v := model.BrandKobra
		return &v
	case model.BrandHagel:
		v := model.BrandHagel
		return &v
	}
	return optionalString(choice)
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return invalid("password", "must be at least 8 characters")
	}
	return nil
}
