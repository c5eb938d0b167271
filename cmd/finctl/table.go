package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/guileen/finledger/tableview"
	"github.com/guileen/finledger/types"
)

func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// printTable writes a rendered page as an aligned grid followed by a
// pagination footer. Active filters are marked next to their header.
func printTable(out io.Writer, page *tableview.Rendered) error {
	if page.Error != "" {
		_, err := fmt.Fprintln(out, page.Error)
		return err
	}
	if len(page.Headers) == 0 {
		_, err := fmt.Fprintln(out, page.Message)
		return err
	}

	tw := newTabWriter(out)
	headers := make([]string, len(page.Headers))
	for i, h := range page.Headers {
		headers[i] = strings.ToUpper(h.Column)
		if h.Filtered {
			headers[i] += fmt.Sprintf(" [%s %s]", h.OperatorLabel, h.FilterValue)
		}
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range page.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell.Display
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if page.Message != "" {
		fmt.Fprintln(out, page.Message)
	}
	_, err := fmt.Fprintln(out, footer(page.Pagination))
	return err
}

func footer(p tableview.PaginationControls) string {
	if p.FilteredRows == 0 {
		return fmt.Sprintf("no matching rows (%d total)", p.TotalRows)
	}
	return fmt.Sprintf("page %d/%d, rows %d-%d of %d (%d total), %s per page",
		p.CurrentPage, p.TotalPages, p.FirstRow, p.LastRow, p.FilteredRows, p.TotalRows, p.PageSize)
}

func printSchema(out io.Writer, schema types.Schema) error {
	tw := newTabWriter(out)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLABLE\tDESCRIPTION")
	for _, col := range schema.AllColumns() {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", col.Name, col.Type, col.Nullable, col.Description)
	}
	return tw.Flush()
}
