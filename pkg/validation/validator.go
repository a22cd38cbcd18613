// Package validation wraps go-playground/validator with the tags used by
// import rows and API payloads.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/adrata/backend/pkg/errors"
)

var (
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
	phoneStrip      = regexp.MustCompile(`[^\d+]`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	defaultValidate *validator.Validate
	once            sync.Once
)

// Get returns the shared validator with the custom tags registered:
//
//	phone     digits with an optional leading +, separators ignored
//	crmemail  the address shape accepted by the CRM importer
func Get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("crmemail", func(fl validator.FieldLevel) bool {
			return IsEmail(fl.Field().String())
		})
		defaultValidate = v
	})
	return defaultValidate
}

// NormalizePhone drops everything except digits and '+'.
func NormalizePhone(phone string) string {
	return phoneStrip.ReplaceAllString(phone, "")
}

// IsPhone reports whether phone looks like a dialable number once
// separators are removed.
func IsPhone(phone string) bool {
	return phonePattern.MatchString(NormalizePhone(phone))
}

func IsEmail(email string) bool {
	email = strings.TrimSpace(email)
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// FieldErrors maps json field names to the failing tag.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// Struct validates s and converts the first failure into a ValidationError.
func Struct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fe.Field(), describe(fe))
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "phone":
		return "is not a valid phone number"
	case "email", "crmemail":
		return "is not a valid email address"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
