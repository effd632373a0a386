package output

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/jamesainslie/algobench/pkg/algobench/report"
)

// TSVFormatter renders tab-separated values with a header row.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	w.WriteString(strings.Join(tableHeader, "\t"))
	w.WriteByte('\n')
	for _, row := range flatten(r) {
		w.WriteString(strings.Join(row.cells(), "\t"))
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter renders RFC 4180 comma-separated values.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, row := range flatten(r) {
		if err := writer.Write(row.cells()); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter renders a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	w.WriteString("| " + strings.Join(tableHeader, " | ") + " |\n")
	w.WriteString(strings.Repeat("|---", len(tableHeader)) + "|\n")

	for _, row := range flatten(r) {
		cells := row.cells()
		for i, c := range cells {
			cells[i] = escapeMarkdownPipe(c)
		}
		w.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return nil
}

func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

var _ Formatter = (*MarkdownFormatter)(nil)
