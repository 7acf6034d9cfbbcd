package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UpperCamelCase converts snake_case or kebab-case to UpperCamelCase.
// Example: "blog_post" -> "BlogPost", "user-list" -> "UserList"
func UpperCamelCase(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	c := cases.Title(language.English, cases.NoLower)
	s = c.String(s)
	return strings.ReplaceAll(s, " ", "")
}
