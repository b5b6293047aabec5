package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, Split("", 100))
	})

	t.Run("input below limit is a single chunk", func(t *testing.T) {
		chunks := Split("hello world", 100)
		require.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, "hello world", chunks[0].Text)
	})

	t.Run("zero limit disables splitting", func(t *testing.T) {
		text := strings.Repeat("a", 5000)
		chunks := Split(text, 0)
		require.Len(t, chunks, 1)
	})

	t.Run("indices are dense and ordered", func(t *testing.T) {
		text := strings.Repeat("some words here. ", 400)
		chunks := Split(text, 500)
		require.Greater(t, len(chunks), 1)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
		}
	})

	t.Run("every chunk respects the limit", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma delta. ", 300)
		for _, c := range Split(text, 256) {
			assert.LessOrEqual(t, len(c.Text), 256)
		}
	})

	t.Run("concatenation reconstructs the input", func(t *testing.T) {
		text := "First paragraph with several sentences. Another one here!\n\n" +
			"Second paragraph that keeps going for a while. It has more text. " +
			strings.Repeat("Filler sentence to force multiple chunks. ", 50)
		var sb strings.Builder
		for _, c := range Split(text, 200) {
			sb.WriteString(c.Text)
		}
		assert.Equal(t, text, sb.String())
	})

	t.Run("prefers paragraph boundaries", func(t *testing.T) {
		text := strings.Repeat("x", 400) + "\n\n" + strings.Repeat("y", 400)
		chunks := Split(text, 500)
		require.Len(t, chunks, 2)
		assert.True(t, strings.HasSuffix(chunks[0].Text, "\n\n"))
		assert.Equal(t, strings.Repeat("y", 400), chunks[1].Text)
	})

	t.Run("hard cut when no boundary exists", func(t *testing.T) {
		text := strings.Repeat("z", 1000)
		chunks := Split(text, 300)
		require.Len(t, chunks, 4)
		assert.Equal(t, 300, len(chunks[0].Text))
	})

	t.Run("hard cut never splits a rune", func(t *testing.T) {
		text := strings.Repeat("日本語テキスト", 100)
		for _, c := range Split(text, 100) {
			assert.True(t, len(c.Text) <= 100)
			assert.True(t, utf8.ValidString(c.Text))
		}
	})

	t.Run("3500 characters at 1000 yields 4 chunks", func(t *testing.T) {
		text := strings.Repeat("abcd efgh ", 350)
		require.Equal(t, 3500, len(text))
		chunks := Split(text, 1000)
		assert.Len(t, chunks, 4)
	})
}

func TestSplitRecursively(t *testing.T) {
	t.Run("text at or below min is not split", func(t *testing.T) {
		chunks := SplitRecursively("short text", 5, 100, 3)
		require.Len(t, chunks, 1)
		assert.Equal(t, "short text", chunks[0].Text)
	})

	t.Run("zero depth is not split", func(t *testing.T) {
		text := strings.Repeat("word ", 100)
		chunks := SplitRecursively(text, 100, 10, 0)
		require.Len(t, chunks, 1)
	})

	t.Run("halving produces two pieces", func(t *testing.T) {
		text := strings.Repeat("alpha beta ", 50)
		chunks := SplitRecursively(text, len(text)/2, 10, 1)
		require.Len(t, chunks, 2)
		assert.Equal(t, text, chunks[0].Text+chunks[1].Text)
	})

	t.Run("target below min is clamped to min", func(t *testing.T) {
		text := strings.Repeat("word ", 60)
		chunks := SplitRecursively(text, 1, 50, 1)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c.Text), 50)
		}
	})

	t.Run("indices are reassigned densely", func(t *testing.T) {
		text := strings.Repeat("some sentence here. ", 100)
		chunks := SplitRecursively(text, 200, 10, 3)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
		}
	})
}

func TestSplitBySentences(t *testing.T) {
	t.Run("one sentence per chunk", func(t *testing.T) {
		chunks := SplitBySentences("First one. Second one! Third one?", 1)
		require.Len(t, chunks, 3)
		assert.Equal(t, "First one.", chunks[0].Text)
		assert.Equal(t, "Second one!", chunks[1].Text)
		assert.Equal(t, "Third one?", chunks[2].Text)
	})

	t.Run("groups sentences", func(t *testing.T) {
		chunks := SplitBySentences("A. B. C. D. E.", 2)
		require.Len(t, chunks, 3)
		assert.Equal(t, "A. B.", chunks[0].Text)
		assert.Equal(t, "E.", chunks[2].Text)
	})

	t.Run("no boundary signals cannot split", func(t *testing.T) {
		chunks := SplitBySentences("no terminator anywhere in this text", 1)
		require.Len(t, chunks, 1)
	})

	t.Run("decimal points are not boundaries", func(t *testing.T) {
		chunks := SplitBySentences("The value is 3.14 here. Another sentence.", 1)
		require.Len(t, chunks, 2)
		assert.Equal(t, "The value is 3.14 here.", chunks[0].Text)
	})

	t.Run("closing quotes stay with the sentence", func(t *testing.T) {
		chunks := SplitBySentences(`He said "stop." Then he left.`, 1)
		require.Len(t, chunks, 2)
		assert.Equal(t, `He said "stop."`, chunks[0].Text)
	})

	t.Run("cjk terminators", func(t *testing.T) {
		chunks := SplitBySentences("これは文です。 次の文です。", 1)
		require.Len(t, chunks, 2)
	})
}
