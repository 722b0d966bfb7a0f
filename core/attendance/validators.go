package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

var (
	statusTag  = "attendance_status"
	statusText = "unsupported attendance status"

	dateTag  = "datetime"
	dateText = "{0} must be a date formatted as YYYY-MM-DD"
)

// InitValidators registers the attendance validators on validate.
// core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText, true)
}

func statusValidation(fl validator.FieldLevel) bool {
	_, err := ParseStatus(fl.Field().String())
	return err == nil
}
