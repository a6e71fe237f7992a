package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	calDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockTimePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// NewValidator returns a validator with the calendar-date and clock-time
// rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("caldate", func(fl validator.FieldLevel) bool {
		return calDatePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		return clockTimePattern.MatchString(fl.Field().String())
	})
	return v
}
