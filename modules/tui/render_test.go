package tui

import (
	"testing"

	"tx-composer/modules/builder"
	"tx-composer/modules/tree"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
)

func TestWindowTruncatesAfterSelection(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}

	assert.Equal(t, []string{"a", "b", "c", "d", more}, window(items, 2, 4))
	assert.Equal(t, items, window(items, 2, 10))
	// everything above the selection stays
	assert.Equal(t, []string{"a", "b", "c", "d", "e", more}, window(items, 4, 2))
	assert.Equal(t, []string{"a", more}, window(items, 0, 0))
}

func TestCardLinesIndent(t *testing.T) {
	cards := []tree.Card{
		{Text: "Id", Indent: 0},
		{Text: "AccountId32", Indent: 1},
		{Text: "value: 1", Indent: 2},
	}
	assert.Equal(t, []string{"Id", " | AccountId32", " |  | value: 1"}, cardLines(cards, 0, 20))
}

func TestDetailLines(t *testing.T) {
	d := builder.Detail{
		Description: "Transfer funds",
		Content:     "dest\nvalue",
		Buffer:      optional.Some("12"),
		Selection:   optional.Some(builder.NewSelector([]string{"x", "y", "z"}, 1)),
	}
	lines, selected := detailLines(d, 20)
	assert.Equal(t, []string{
		"Transfer funds", "",
		"dest", "value", "",
		"x", "y", "z", "",
		"New value >12",
	}, lines)
	assert.Equal(t, "y", lines[selected])

	lines, selected = detailLines(builder.Detail{
		Buffer:    optional.None[string](),
		Selection: optional.None[*builder.Selector](),
	}, 20)
	assert.Equal(t, -1, selected)
	assert.Len(t, lines, 3)
}

func TestScrollKeepsSelectionVisible(t *testing.T) {
	lines := []string{"0", "1", "2", "3", "4", "5"}
	got, sel := scroll(lines, 5, 3)
	assert.Equal(t, []string{"3", "4", "5"}, got)
	assert.Equal(t, 2, sel)

	got, sel = scroll(lines, 1, 3)
	assert.Equal(t, lines, got)
	assert.Equal(t, 1, sel)
}
