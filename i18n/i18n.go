// Package i18n provides the bilingual string tables and locale negotiation
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var (
	supportedTags = []language.Tag{language.English, language.Arabic}
	supportedIDs  = []string{English, Arabic}
	matcher       = language.NewMatcher(supportedTags)
)

// Lookup returns the string for key in locale, falling back to the default
// locale and then to the key itself
func Lookup(key, locale string) string {
	if s, ok := translations[locale][key]; ok {
		return s
	}
	if s, ok := translations[DefaultLocale][key]; ok {
		return s
	}
	return key
}

// Sprintf looks up a format string and applies args
func Sprintf(locale, key string, args ...any) string {
	return fmt.Sprintf(Lookup(key, locale), args...)
}

// Table returns every key of the default locale resolved for locale
func Table(locale string) map[string]string {
	table := make(map[string]string, len(translations[DefaultLocale]))
	for key := range translations[DefaultLocale] {
		table[key] = Lookup(key, locale)
	}
	return table
}

// IsSupported reports whether locale has its own string table
func IsSupported(locale string) bool {
	_, ok := translations[locale]
	return ok
}

// Supported lists the supported locale identifiers
func Supported() []string {
	return append([]string(nil), supportedIDs...)
}

// LanguageNames returns the language selector labels, each in its own language
func LanguageNames() map[string]string {
	names := make(map[string]string, len(languageNames))
	for locale, name := range languageNames {
		names[locale] = name
	}
	return names
}

// Direction is the text direction of a locale, "rtl" or "ltr"
func Direction(locale string) string {
	if locale == Arabic {
		return "rtl"
	}
	return "ltr"
}

// ResolveLocale picks a supported locale. An explicit lang wins over the
// Accept-Language header; fallback is returned when nothing matches.
func ResolveLocale(lang, acceptLanguage, fallback string) string {
	if !IsSupported(fallback) {
		fallback = DefaultLocale
	}

	var tags []language.Tag
	if lang = strings.TrimSpace(lang); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 && acceptLanguage != "" {
		if parsed, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			tags = parsed
		}
	}
	if len(tags) == 0 {
		return fallback
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return supportedIDs[index]
}
