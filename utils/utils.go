package utils

import "strings"

func UrlQuery(s string) string { return strings.ReplaceAll(s, " ", "+") }
