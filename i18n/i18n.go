// Package i18n turns validation field errors into localised messages. It is
// applied where responses are rendered; validation itself stays language-free.
// file: i18n/i18n.go
package i18n

import (
	"strings"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/bg"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"

	"climb-calendar/logger"
	"climb-calendar/models"
)

// DefaultLocale is used for unknown or missing languages.
const DefaultLocale = "en"

// messages per locale: {0} is the field, {1} the rule parameter
var messages = map[string]map[string]string{
	"en": {
		"required": "{0} is required",
		"min":      "{0} must be at least {1}",
		"max":      "{0} must be at most {1}",
		"oneof":    "{0} must be one of: {1}",
		"fallback": "{0} is invalid",
	},
	"bg": {
		"required": "{0} е задължително",
		"min":      "{0} трябва да е поне {1}",
		"max":      "{0} трябва да е най-много {1}",
		"oneof":    "{0} трябва да е едно от: {1}",
		"fallback": "{0} е невалидно",
	},
}

// field labels per locale; unlisted fields use their own name
var labels = map[string]map[string]string{
	"bg": {
		"name":         "Името",
		"date":         "Датата",
		"dateDuration": "Продължителността",
		"type":         "Типът",
		"category":     "Категорията",
	},
}

// Translator localises field errors.
type Translator struct {
	uni *ut.UniversalTranslator
}

// New builds a translator for every supported locale.
func New() (*Translator, error) {
	fallback := en.New()
	uni := ut.New(fallback, fallback, bg.New())

	for loc, msgs := range messages {
		trans, _ := uni.GetTranslator(loc)
		for key, text := range msgs {
			if err := trans.Add(key, text, true); err != nil {
				return nil, err
			}
		}
	}
	return &Translator{uni: uni}, nil
}

// Locale picks the best supported locale for an Accept-Language style list.
func (t *Translator) Locale(accept string) string {
	var prefs []string
	for _, part := range strings.Split(accept, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if tag == "" {
			continue
		}
		base, _, _ := strings.Cut(tag, "-")
		prefs = append(prefs, strings.ToLower(base))
	}
	trans, _ := t.uni.FindTranslator(prefs...)
	return trans.Locale()
}

// Fields renders every field error of verr in locale.
func (t *Translator) Fields(locale string, verr *models.ValidationError) map[string]string {
	trans, found := t.uni.GetTranslator(locale)
	if !found {
		trans, _ = t.uni.GetTranslator(DefaultLocale)
	}

	out := make(map[string]string, len(verr.Fields))
	for name, fe := range verr.Fields {
		out[name] = t.message(trans, fe)
	}
	return out
}

func (t *Translator) message(trans ut.Translator, fe models.FieldError) string {
	field := label(trans.Locale(), fe.Field)
	param := fe.Param
	if fe.Tag == "min" || fe.Tag == "max" {
		param = number(trans, param)
	}

	msg, err := trans.T(fe.Tag, field, param)
	if err != nil {
		msg, err = trans.T("fallback", field)
		if err != nil {
			logger.Warn.Printf("[i18n] no message for %s/%s: %v", trans.Locale(), fe.Tag, err)
			return fe.Field + ": " + fe.Tag
		}
	}
	return msg
}

func label(locale, field string) string {
	base, _, _ := strings.Cut(field, "[")
	if l, ok := labels[locale][base]; ok {
		return l
	}
	return field
}

// number formats a numeric rule parameter for the locale.
func number(trans locales.Translator, s string) string {
	var n uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
		n = n*10 + uint64(r-'0')
	}
	if s == "" {
		return s
	}
	return trans.FmtNumber(float64(n), 0)
}
