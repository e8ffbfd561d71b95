package table

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FromHTML builds a table from a <table> selection.
//
// The header is the text of every th cell; data rows are the td cells of
// every tr after the first one. Rows are padded or truncated to the header
// width so that ragged markup never produces misaligned columns.
func FromHTML(sel *goquery.Selection) *Table {
	var header []string
	sel.Find("th").Each(func(_ int, th *goquery.Selection) {
		header = append(header, CleanText(th.Text()))
	})

	var rows [][]string
	sel.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		var cells []string
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			text := CleanText(td.Text())
			if j == 0 {
				text = cleanLabel(text)
			}
			cells = append(cells, text)
		})
		if len(cells) == 0 {
			return
		}
		rows = append(rows, cells)
	})

	return New(header, rows)
}

// CleanText collapses runs of whitespace (including nbsp) into single spaces.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// cleanLabel drops the expand marker screener appends to row labels
// ("Sales +" -> "Sales").
func cleanLabel(text string) string {
	text = strings.TrimSpace(text)
	for strings.HasSuffix(text, "+") {
		text = strings.TrimSpace(strings.TrimSuffix(text, "+"))
	}
	return text
}
