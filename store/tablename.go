package store

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

func sanitize(name string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "_")
}

// tableName derives a collection's physical table name: lowercase,
// each non-alphanumeric character replaced with "_", prefixed with "c_".
func tableName(collection string) string {
	return "c_" + sanitize(collection)
}

// SanitizeNamespace derives a namespace's storage file stem: the same
// rule as tableName, minus the "c_" prefix.
func SanitizeNamespace(namespace string) string {
	return sanitize(namespace)
}
