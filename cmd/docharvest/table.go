package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableSpec describes one listing printed by the ledger and history commands.
type tableSpec struct {
	headers []string
	rows    [][]string
	aligns  []columnAlignment

	// caption is printed under the table on a terminal only.
	caption string

	// maxWidth caps each column's width on a terminal; zero means unlimited.
	maxWidth []int
}

// renderTable writes the listing to out. A terminal gets a rounded table;
// anything else gets CSV so the output can be piped into other tools.
func renderTable(out io.Writer, spec tableSpec) error {
	columns := len(spec.headers)
	if columns == 0 {
		return nil
	}

	tw := table.NewWriter()
	header := make(table.Row, columns)
	for i, h := range spec.headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range spec.rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	if !isTerminal(out) {
		_, err := fmt.Fprintln(out, tw.RenderCSV())
		return err
	}

	tw.SetStyle(table.StyleRounded)
	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(spec.aligns) && spec.aligns[i] == alignRight {
			align = text.AlignRight
		}
		cc := table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
		if i < len(spec.maxWidth) {
			cc.WidthMax = spec.maxWidth[i]
		}
		columnConfigs = append(columnConfigs, cc)
	}
	tw.SetColumnConfigs(columnConfigs)
	if spec.caption != "" {
		tw.SetCaption("%s", spec.caption)
	}

	_, err := fmt.Fprintln(out, tw.Render())
	return err
}
