package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleCase collapses whitespace and title-cases a person or place name.
func TitleCase(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(strings.Join(fields, " ")))
}
