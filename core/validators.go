package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// admission numbers come from school records: "ADM-2024-001",
	// "STD_042" and the like. No spaces, no punctuation beyond - and _.
	admissionNumberTag   = "admission_number"
	admissionNumberText  = "only letters, digits, hyphens and underscores are allowed"
	admissionNumberRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators wires the shared validator instance: English
// translations, JSON field names in error output, and the validation
// tags the domain packages rely on. Call once at startup; domain
// packages register their own tags on top (see account.InitValidators).
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report errors under JSON tag names, not Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(admissionNumberTag, admissionNumberValidation)
	RegisterCustomTranslation(validate, translator, admissionNumberTag, admissionNumberText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func admissionNumberValidation(fl validator.FieldLevel) bool {
	return admissionNumberRegex.MatchString(fl.Field().String())
}
