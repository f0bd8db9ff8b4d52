package entity

import "strings"

// Fields is a sparse set of document fields keyed by (possibly dotted) path.
// Only the paths present are written on update.
type Fields map[string]any

func setString(out Fields, path string, v *string) {
	if v != nil {
		out[path] = strings.TrimSpace(*v)
	}
}

func setStrings(out Fields, path string, v *[]string) {
	if v != nil {
		out[path] = cleanList(*v)
	}
}

// NormalizeKey trims surrounding whitespace from an identifier.
func NormalizeKey(raw string) string {
	return strings.TrimSpace(raw)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
