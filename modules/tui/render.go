package tui

import (
	"strings"

	"tx-composer/modules/builder"
	"tx-composer/modules/tree"
)

const more = " + + + ( more )"

// window cuts a list once half the pane height has been shown from the
// highlighted line on. Lines above it are kept.
func window(items []string, selected int, height int) []string {
	threshold := max(height/2, 1)
	res := make([]string, 0, len(items))
	seen := 0
	for i, item := range items {
		if i >= selected {
			seen++
			if seen > threshold {
				res = append(res, more)
				break
			}
		}
		res = append(res, item)
	}
	return res
}

func cardLines(cards []tree.Card, cursor int, height int) []string {
	items := make([]string, len(cards))
	for i, c := range cards {
		items[i] = strings.Repeat(" | ", c.Indent) + c.Text
	}
	return window(items, cursor, height)
}

// detailLines lays out the detail panel and returns the line of the
// highlighted selector entry, or -1.
func detailLines(d builder.Detail, height int) ([]string, int) {
	lines := []string{d.Description, ""}
	lines = append(lines, strings.Split(d.Content, "\n")...)
	selected := -1

	if d.Selection.IsSome() {
		s := d.Selection.Unwrap()
		lines = append(lines, "")
		selected = len(lines) + s.Index()
		lines = append(lines, window(s.Labels, s.Index(), height)...)
	}

	if d.Buffer.IsSome() {
		lines = append(lines, "", "New value >"+d.Buffer.Unwrap())
	}
	return lines, selected
}

// scroll drops lines from the top until the highlighted one fits.
func scroll(lines []string, selected int, height int) ([]string, int) {
	if height <= 0 || selected < height {
		return lines, selected
	}
	skip := selected - height + 1
	return lines[skip:], selected - skip
}
