package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docrag/internal/domain"
)

func TestPrefixText(t *testing.T) {
	assert.Equal(t, "Note hello", PrefixText("Note", "hello"))
	assert.Equal(t, "Note: hello", PrefixText("Note: ", "hello"))
	assert.Equal(t, "hello", PrefixText("", "hello"))
	assert.Equal(t, "Note  hello", PrefixText("Note  ", "hello"))
}

func TestApplyPrefix(t *testing.T) {
	chunks := []domain.Chunk{{Text: "a"}, {Text: "b", IsError: true}}

	ApplyPrefix("Doc:", chunks)
	assert.Equal(t, "Doc: a", chunks[0].Text)
	assert.Equal(t, "Doc: b", chunks[1].Text)

	ApplyPrefix("", chunks)
	assert.Equal(t, "Doc: a", chunks[0].Text)
}
