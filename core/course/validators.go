package course

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	gatingTag  = "gating"
	gatingText = "gating must be one of: sequential, open"
)

func init() {
	_ = core.Validate.RegisterValidation(gatingTag, gatingValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, gatingTag, gatingText)
}

// gatingValidation checks that the provided value is a known Gating policy.
func gatingValidation(fl validator.FieldLevel) bool {
	return Gating(fl.Field().String()).Valid()
}
