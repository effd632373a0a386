package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/algobench/pkg/algobench/report"
)

// docMeta is the run metadata in structured output. Durations are
// rendered as strings.
type docMeta struct {
	RunID   string    `json:"run_id" yaml:"run_id"`
	Started time.Time `json:"started" yaml:"started"`
	Elapsed string    `json:"elapsed" yaml:"elapsed"`
	Backend string    `json:"backend" yaml:"backend"`
	Threads int       `json:"threads" yaml:"threads"`
	Results int       `json:"results" yaml:"results"`
}

// document is the full structured output shared by the JSON and YAML
// formatters.
type document struct {
	Meta    docMeta          `json:"meta" yaml:"meta"`
	Devices []report.Section `json:"devices" yaml:"devices"`
	Totals  []report.Row     `json:"totals" yaml:"totals"`
}

func buildDocument(r *report.Report) document {
	devices := r.Sections
	if devices == nil {
		devices = []report.Section{}
	}
	return document{
		Meta: docMeta{
			RunID:   r.Meta.RunID.String(),
			Started: r.Meta.Started,
			Elapsed: r.Meta.Elapsed.String(),
			Backend: r.Meta.Backend,
			Threads: r.Meta.Threads,
			Results: r.Rows(),
		},
		Devices: devices,
		Totals:  r.Totals(),
	}
}

// JSONFormatter renders the report as a single indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes one compact JSON object per device and algorithm,
// suitable for streaming into tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	for _, row := range flatten(r) {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

var _ Formatter = (*JSONLFormatter)(nil)
