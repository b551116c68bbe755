package domain

const (
	TruncateLimit  = 1970
	TruncateMarker = "\n[...] (output truncated)"

	// TitleLimit is the longest title or author line any platform accepts.
	TitleLimit = 256
)

const codeFence = "```"

// Truncate cuts free text longer than TruncateLimit runes and appends TruncateMarker.
func Truncate(s string) string {
	return TruncateTo(s, TruncateLimit)
}

// TruncateTo is Truncate with a caller-chosen rune limit.
func TruncateTo(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i] + TruncateMarker
		}
		count++
	}

	return s
}

// CodeBlock truncates text and wraps it in a fenced code block. The fence always survives the cut.
func CodeBlock(text string) string {
	return codeFence + "\n" + Truncate(text) + "\n" + codeFence
}

// Clip cuts s to at most limit runes without a marker, for short fields such as titles.
func Clip(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}

	return s
}
