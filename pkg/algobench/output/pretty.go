package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/algobench/pkg/algobench/report"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

// PrettyFormatter renders a styled report for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	for _, s := range r.Sections {
		w.WriteString(f.formatSection(s))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatHeader(r *report.Report) string {
	m := r.Meta

	parts := []string{
		LabelStyle.Render("Backend:") + " " + ValueStyle.Render(m.Backend),
		LabelStyle.Render("Workers:") + " " + ValueStyle.Render(fmt.Sprintf("%d", m.Threads)),
		LabelStyle.Render("Elapsed:") + " " + ValueStyle.Render(formatDuration(m.Elapsed)),
	}
	lines := []string{
		TitleStyle.Render("Benchmark results"),
		strings.Join(parts, "  "),
		MutedStyle.Render("run " + m.RunID.String() + ", started " + humanize.Time(m.Started)),
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatSection(s report.Section) string {
	var sb strings.Builder

	title := fmt.Sprintf("GPU #%d - %s", s.Device.Index, s.Device.Name)
	if s.Device.TotalMB > 0 {
		title += " " + MutedStyle.Render("("+types.FormatMB(s.Device.TotalMB)+")")
	}
	sb.WriteString(TitleStyle.Render(title))
	sb.WriteString("\n")

	if len(s.Rows) == 0 {
		sb.WriteString(MutedStyle.Render("  no results"))
		sb.WriteString("\n\n")
		return sb.String()
	}

	rates := make([]string, len(s.Rows))
	algoWidth, rateWidth := len("ALGO"), len("RATE")
	for i, row := range s.Rows {
		rates[i] = types.FormatHashrate(row.Hashrate)
		algoWidth = max(algoWidth, len(row.Algorithm))
		rateWidth = max(rateWidth, len(rates[i]))
	}

	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("ALGO", algoWidth)),
		TableHeaderStyle.Render(padLeft("RATE", rateWidth)),
		TableHeaderStyle.Render(padLeft("MEMORY", 9)),
		TableHeaderStyle.Render(padLeft("THROUGHPUT", 10)),
		TableHeaderStyle.Render("LEAKS")))

	for i, row := range s.Rows {
		leaks := SuccessStyle.Render("0")
		if row.Leaks > 0 {
			leaks = WarningStyle.Render(fmt.Sprintf("%d", row.Leaks))
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
			ValueStyle.Render(padRight(row.Algorithm, algoWidth)),
			RateStyle.Render(padLeft(rates[i], rateWidth)),
			ValueStyle.Render(padLeft(types.FormatMB(row.MemUsedMB), 9)),
			ValueStyle.Render(padLeft(humanize.Comma(int64(row.Throughput)), 10)),
			leaks))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *report.Report) string {
	var total float64
	leaks := 0
	for _, t := range r.Totals() {
		total += t.Hashrate
		leaks += t.Leaks
	}

	parts := []string{
		LabelStyle.Render("Results:") + " " + ValueStyle.Render(fmt.Sprintf("%d", r.Rows())),
		LabelStyle.Render("Combined:") + " " + RateStyle.Render(types.FormatHashrate(total)),
	}
	if leaks > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d leaks", leaks)))
	}
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))

	return FooterBox.Render(strings.Join(parts, "  "))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
