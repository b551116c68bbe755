package command

import (
	"strings"
	"unicode"
)

// SplitCommand strips prefix from text and splits it into the command token and the remainder of the line.
// A trailing "@botname" on the token, as sent by Telegram in groups, is dropped.
func SplitCommand(text, prefix string) (string, string, bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}

	rest := text[len(prefix):]

	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end == 0 || rest == "" {
		return "", "", false
	}
	if end < 0 {
		end = len(rest)
	}

	token := rest[:end]
	if at := strings.IndexByte(token, '@'); at > 0 {
		token = token[:at]
	}

	return token, strings.TrimSpace(rest[end:]), true
}

// ParseArgs splits a remainder into whitespace separated arguments.
func ParseArgs(args string) []string {
	return strings.Fields(args)
}
