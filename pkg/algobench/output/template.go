package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/algobench/pkg/algobench/report"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

// TemplateFormatter renders the report with a user-supplied text/template.
// The template sees the report itself, so .Totals and .Rows are available
// alongside .Meta and .Sections.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// NewTemplateFormatter creates a template formatter.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{
		templateStr: templateStr,
	}
}

// SetTemplate replaces the template; it is compiled on the next Format.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// {{date .Meta.Started "2006-01-02"}}
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},
		// {{rate .Hashrate}}
		"rate": types.FormatHashrate,
		// {{mb .MemUsedMB}}
		"mb": types.FormatMB,
		"comma": func(n uint32) string {
			return humanize.Comma(int64(n))
		},
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *report.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	return f.template.Execute(w, r)
}

const defaultTemplate = `{{range .Sections}}{{$dev := .Device.Index}}{{range .Rows}}{{$dev}}	{{.Algorithm}}	{{rate .Hashrate}}
{{end}}{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
