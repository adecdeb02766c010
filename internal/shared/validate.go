package shared

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

var mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

// Validator returns the shared validator with the dealership tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return mobilePattern.MatchString(NormalizeMobile(fl.Field().String()))
		})
	})
	return validate
}

// ValidateStruct runs struct tags and converts the first failure into a
// Validation error naming the field.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return Invalid(fe.Field(), "%s", describeTag(fe))
	}
	return Invalid("", "%v", err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "mobile":
		return "must be a 10 digit mobile number"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

// NormalizeMobile strips spaces, dashes and an Indian country prefix.
func NormalizeMobile(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}
	return digits
}
