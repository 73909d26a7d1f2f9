package registry

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeName maps an antibiotic display name to its artifact key,
// e.g. "Piperacillin-Tazobactam" -> "piperacillin_tazobactam".
func NormalizeName(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(s, "_")
}
