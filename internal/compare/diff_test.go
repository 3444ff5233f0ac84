package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffPositions(t *testing.T) {
	t.Parallel()

	t.Run("identical strings yield nothing", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, DiffPositions("Java Dev", "Java Dev", 10))
	})

	t.Run("single differing rune", func(t *testing.T) {
		t.Parallel()
		diffs := DiffPositions("Java Dev", "Java Dav", 10)
		require.Len(t, diffs, 1)
		assert.Equal(t, 6, diffs[0].Pos)
		assert.Equal(t, "e", diffs[0].DBChar)
		assert.Equal(t, "a", diffs[0].IndexChar)
	})

	t.Run("longer index side pads db with empty", func(t *testing.T) {
		t.Parallel()
		diffs := DiffPositions("Dev", "Devs", 10)
		require.Len(t, diffs, 1)
		assert.Equal(t, 3, diffs[0].Pos)
		assert.Equal(t, "", diffs[0].DBChar)
		assert.Equal(t, "s", diffs[0].IndexChar)
	})

	t.Run("limit caps output", func(t *testing.T) {
		t.Parallel()
		diffs := DiffPositions("aaaaaa", "bbbbbb", 3)
		assert.Len(t, diffs, 3)
	})

	t.Run("multibyte runes diff by rune index", func(t *testing.T) {
		t.Parallel()
		diffs := DiffPositions("Café", "Cafe", 10)
		require.Len(t, diffs, 1)
		assert.Equal(t, 3, diffs[0].Pos)
		assert.Equal(t, "é", diffs[0].DBChar)
		assert.Equal(t, "e", diffs[0].IndexChar)
	})
}

func TestFormatPositions(t *testing.T) {
	t.Parallel()

	out := FormatPositions([]PositionDiff{
		{Pos: 2, DBChar: "a", IndexChar: "b"},
		{Pos: 5, DBChar: "", IndexChar: "x"},
	})
	assert.Equal(t, `(2: "a" vs "b") (5: "" vs "x")`, out)
}
