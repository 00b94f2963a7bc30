package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/metricampus/core"
	"github.com/trezcool/metricampus/core/layout"
)

var (
	clockTag  = "clock"
	clockText = "invalid time, expected HH:MM"

	modalityTag  = "modality"
	modalityText = "invalid modality, expected one of on_site, online or hybrid"

	endAfterStartTag  = "end_after_start"
	endAfterStartText = "end time must be after start time"
)

// InitValidators registers the schedule validators on validate.
// core.InitValidators must have been called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(clockTag, clockValidation)
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)

	_ = validate.RegisterValidation(modalityTag, modalityValidation)
	core.RegisterCustomTranslation(validate, translator, modalityTag, modalityText)

	validate.RegisterStructValidation(blockStructValidation, NewClassBlock{})
	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
}

// Custom Validators

func clockValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		_, err := layout.ParseClock(str)
		return err == nil
	}
	return false
}

func modalityValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return Modality(str).IsValid()
	}
	return false
}

// blockStructValidation checks that a block ends after it starts.
// unparseable times are reported by the clock tag.
func blockStructValidation(sl validator.StructLevel) {
	if nb, ok := sl.Current().Interface().(NewClassBlock); ok {
		start, err := layout.ParseClock(nb.StartTime)
		if err != nil {
			return
		}
		end, err := layout.ParseClock(nb.EndTime)
		if err != nil {
			return
		}
		if end <= start {
			sl.ReportError(nb.EndTime, "end_time", "EndTime", endAfterStartTag, "")
		}
	}
}
