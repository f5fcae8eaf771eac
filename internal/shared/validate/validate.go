package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid оборачивает все ошибки валидации DTO
var ErrInvalid = errors.New("validation failed")

var (
	once sync.Once
	v    *validator.Validate

	dateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe   = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	mobileRe = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New()
		_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
			return dateRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return timeRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return mobileRe.MatchString(fl.Field().String())
		})
	})
	return v
}

// Struct проверяет DTO по тегам validate и возвращает читаемую ошибку
func Struct(dto any) error {
	err := instance().Struct(dto)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "ymd":
		return field + " must be in YYYY-MM-DD format"
	case "hhmm":
		return field + " must be in HH:MM format"
	case "mobile":
		return field + " must be a valid phone number"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
