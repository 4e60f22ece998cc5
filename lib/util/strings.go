package util

import "strings"

func PrefixLines(str, prefix string) string {
	return prefix + strings.ReplaceAll(str, "\n", "\n"+prefix)
}
