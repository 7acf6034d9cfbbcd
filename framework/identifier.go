package framework

import "strings"

var separators = strings.NewReplacer(`\`, "", "/", "")

// Identifier derives the admin page slug of a plugin by dropping every
// namespace separator: `Acme\Blog` and `acme/blog` become "AcmeBlog" and
// "acmeblog".
func Identifier(namespace string) string {
	return separators.Replace(namespace)
}
