package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdownV1(t *testing.T) {
	out, err := EscapeMarkdown("a_b*c`d[e]", MarkdownV1, "")
	require.NoError(t, err)
	assert.Equal(t, "a\\_b\\*c\\`d\\[e]", out)
}

func TestEscapeMarkdownV2(t *testing.T) {
	out, err := EscapeMarkdown("v1.0 (beta)!", MarkdownV2, "")
	require.NoError(t, err)
	assert.Equal(t, "v1\\.0 \\(beta\\)\\!", out)

	link, err := EscapeMarkdown("https://x.y/(a)", MarkdownV2, "text_link")
	require.NoError(t, err)
	assert.Equal(t, "https://x.y/(a\\)", link)
}

func TestEscapeMarkdownUnsupported(t *testing.T) {
	_, err := EscapeMarkdown("x", 3, "")
	assert.Error(t, err)
}

func TestMentionMarkdown(t *testing.T) {
	assert.Equal(t, "[Ann_Lee](tg://user?id=42)", MentionMarkdown(42, "Ann_Lee"))
	assert.Equal(t, "[*Bo*](tg://user?id=7)", MentionMarkdown(7, "*Bo*"))
}
