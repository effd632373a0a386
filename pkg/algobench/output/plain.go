package output

import (
	"bytes"
	"strings"
	"text/tabwriter"

	"github.com/jamesainslie/algobench/pkg/algobench/report"
)

// PlainFormatter renders an aligned, unstyled table with one line per
// device and algorithm. It is meant for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte(strings.Join(tableHeader, "\t") + "\n")); err != nil {
		return err
	}
	for _, row := range flatten(r) {
		if _, err := tw.Write([]byte(strings.Join(row.cells(), "\t") + "\n")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)

// LogFormatter renders the classic per-device result lines.
type LogFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *LogFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	for _, line := range r.Lines() {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("log", func() Formatter {
		return &LogFormatter{}
	})
}

var _ Formatter = (*LogFormatter)(nil)
