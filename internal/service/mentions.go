package service

import (
	"regexp"
	"slices"
	"strings"
)

var mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_.\-]+)`)

// parseMentions достаёт имена из @упоминаний без повторов, регистр не важен
func parseMentions(text string) []string {
	var names []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimRight(m[1], ".-")
		if name == "" {
			continue
		}
		if slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, name) }) {
			continue
		}
		names = append(names, name)
	}
	return names
}
