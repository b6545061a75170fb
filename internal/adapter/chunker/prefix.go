package chunker

import (
	"strings"

	"docrag/internal/domain"
)

// PrefixText prepends prefix to text with exactly one separating space
// unless the prefix already ends with one. An empty prefix is a no-op.
func PrefixText(prefix, text string) string {
	if prefix == "" {
		return text
	}
	if !strings.HasSuffix(prefix, " ") {
		prefix += " "
	}
	return prefix + text
}

// ApplyPrefix annotates every chunk in place.
func ApplyPrefix(prefix string, chunks []domain.Chunk) {
	if prefix == "" {
		return
	}
	for i := range chunks {
		chunks[i].Text = PrefixText(prefix, chunks[i].Text)
	}
}
